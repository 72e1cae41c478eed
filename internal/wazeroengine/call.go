package wazeroengine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/pluginlattice/pluginlattice/wireformat"
)

// Call invokes the target plugin's exported function using the ptr+len
// convention: the argument list is wire-encoded as a single Val (a list,
// one element per positional argument), written into the callee's own
// memory via its allocate() export, passed as (ptr, len), and the
// returned packed (ptr<<32|len) uint64 is read back and deallocated,
// exactly as the teacher's Describe/Schema/Observe call sequence does.
func (f *exportedFunc) Call(ctx context.Context, args []wireformat.Val) (wireformat.Val, error) {
	payload, err := wireformat.Encode(wireformat.List(args...))
	if err != nil {
		return wireformat.Val{}, fmt.Errorf("wazeroengine: encode args: %w", err)
	}

	argsPtr, err := writeToMemory(ctx, f.instance, payload)
	if err != nil {
		return wireformat.Val{}, fmt.Errorf("wazeroengine: write args: %w", err)
	}
	defer deallocate(ctx, f.instance, argsPtr, uint32(len(payload)))

	fn := f.instance.ExportedFunction(f.functionName)
	if fn == nil {
		return wireformat.Val{}, fmt.Errorf("wazeroengine: export %s vanished", f.functionName)
	}

	results, err := fn.Call(ctx, uint64(argsPtr), uint64(len(payload)))
	if err != nil {
		return wireformat.Val{}, err
	}
	if len(results) == 0 {
		return wireformat.Val{}, fmt.Errorf("wazeroengine: %s returned no results", f.functionName)
	}

	resultPtr, resultLen := unpack(results[0])
	if resultPtr == 0 || resultLen == 0 {
		return wireformat.Val{}, fmt.Errorf("wazeroengine: %s returned null result", f.functionName)
	}

	data, err := readString(ctx, f.instance, resultPtr, resultLen)
	if err != nil {
		return wireformat.Val{}, fmt.Errorf("wazeroengine: read result: %w", err)
	}
	return wireformat.Decode(data)
}

// decodeArgs reads the caller-encoded argument list directly out of the
// calling module's memory at (ptr, len); host functions read, they never
// allocate in the caller's space.
func decodeArgs(mod api.Module, ptr, size uint32) ([]wireformat.Val, error) {
	if size == 0 {
		return nil, nil
	}
	data, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("wazeroengine: read args at offset %d", ptr)
	}
	v, err := wireformat.Decode(data)
	if err != nil {
		return nil, err
	}
	return v.List, nil
}

// encodeResultIntoGuest wire-encodes result, writes it into the calling
// module's memory via its allocate() export, and returns the packed
// (ptr<<32|len) uint64 the calling module's import stub expects back.
func encodeResultIntoGuest(ctx context.Context, mod api.Module, result wireformat.Val) (uint64, error) {
	data, err := wireformat.Encode(result)
	if err != nil {
		return 0, err
	}
	ptr, err := writeToMemory(ctx, mod, data)
	if err != nil {
		return 0, err
	}
	return pack(ptr, uint32(len(data))), nil
}

func writeToMemory(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		return 0, fmt.Errorf("wazeroengine: module does not export allocate()")
	}
	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("wazeroengine: allocate: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, fmt.Errorf("wazeroengine: allocate returned null pointer")
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("wazeroengine: write memory at offset %d", ptr)
	}
	return ptr, nil
}

// readString reads exactly size bytes at ptr, then deallocates them —
// the caller has handed ownership of that memory to us by returning it.
func readString(ctx context.Context, mod api.Module, ptr, size uint32) ([]byte, error) {
	defer deallocate(ctx, mod, ptr, size)
	data, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("wazeroengine: read memory at offset %d", ptr)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func deallocate(ctx context.Context, mod api.Module, ptr, size uint32) {
	if ptr == 0 {
		return
	}
	if fn := mod.ExportedFunction("deallocate"); fn != nil {
		_, _ = fn.Call(ctx, uint64(ptr), uint64(size))
	}
}

func pack(ptr, size uint32) uint64 {
	return uint64(ptr)<<32 | uint64(size)
}

func unpack(packed uint64) (ptr, size uint32) {
	return uint32(packed >> 32), uint32(packed & 0xFFFFFFFF)
}
