package abi

import (
	"testing"

	"github.com/wippyai/swiftcall/memory"
	"github.com/wippyai/swiftcall/metadata"
	"github.com/wippyai/swiftcall/value"
)

func valueType(name string, kind metadata.Kind, stride uint32, takable bool) *metadata.Type {
	return &metadata.Type{
		Name: name,
		Kind: kind,
		Metadata: &metadata.StaticMetadata{
			Name:       name,
			TypeLayout: metadata.Layout{Size: stride, Stride: stride, Alignment: 8},
			Witnesses: &metadata.MemoryWitnesses{
				Mem:            memory.Native{},
				Size:           stride,
				BitwiseTakable: takable,
			},
		},
	}
}

func classType(name string) *metadata.Type {
	return &metadata.Type{
		Name: name,
		Kind: metadata.KindClass,
		Metadata: &metadata.StaticMetadata{
			Name:       name,
			Class:      true,
			TypeLayout: metadata.Layout{Size: 8, Stride: 8, Alignment: 8},
		},
	}
}

func newEnv(t *testing.T) *value.Env {
	t.Helper()
	arena := memory.NewArena(0)
	t.Cleanup(func() { _ = arena.Close() })
	return &value.Env{Mem: memory.Native{}, Alloc: arena, Types: metadata.NewTable()}
}
