//go:build !linux

package trampoline

// DefaultPageSource returns the page source used when none is configured.
func DefaultPageSource() PageSource {
	return AnonSource{}
}
