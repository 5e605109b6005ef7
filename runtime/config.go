package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/swiftcall/callconv"
	"github.com/wippyai/swiftcall/metadata"
	"github.com/wippyai/swiftcall/trampoline"
)

// DefaultArenaChunkSize is the default size of each scratch arena chunk.
const DefaultArenaChunkSize = 64 << 10

// Config holds configuration for runtime creation. Zero fields take their
// defaults.
type Config struct {
	// PageSource maps trampoline pages. Defaults to a dual-mapped memfd
	// source on Linux and anonymous RWX pages elsewhere.
	PageSource trampoline.PageSource

	// Caller performs native calls. Defaults to callconv.NativeCaller.
	Caller callconv.Caller

	// Heap resolves the dynamic class of object handles. Optional; without
	// it objects take their declared type.
	Heap metadata.HeapInspector

	// Logger, when set, is installed for the runtime, callconv and
	// trampoline packages.
	Logger *zap.Logger

	// Arch selects the adapter instruction set. Defaults to the host.
	Arch callconv.Arch

	// PageSize is the size of each trampoline page, rounded up to the
	// system page size.
	PageSize int

	// ArenaChunkSize is the size of each scratch arena chunk. Arguments,
	// results and constructed values live in the arena until Close.
	ArenaChunkSize int
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() *Config {
	return &Config{
		Caller:         callconv.NativeCaller{},
		Arch:           callconv.HostArch(),
		ArenaChunkSize: DefaultArenaChunkSize,
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithPageSource sets the trampoline page source.
func WithPageSource(src trampoline.PageSource) Option {
	return func(c *Config) { c.PageSource = src }
}

// WithPageSize sets the trampoline page size.
func WithPageSize(size int) Option {
	return func(c *Config) { c.PageSize = size }
}

// WithArenaChunkSize sets the scratch arena chunk size.
func WithArenaChunkSize(size int) Option {
	return func(c *Config) { c.ArenaChunkSize = size }
}

// WithCaller sets the native caller.
func WithCaller(caller callconv.Caller) Option {
	return func(c *Config) { c.Caller = caller }
}

// WithArch sets the adapter instruction set.
func WithArch(arch callconv.Arch) Option {
	return func(c *Config) { c.Arch = arch }
}

// WithHeap sets the heap inspector.
func WithHeap(h metadata.HeapInspector) Option {
	return func(c *Config) { c.Heap = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
