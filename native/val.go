package native

import "unsafe"

// Val describes a byte region, the way MDB_val does: a size and a pointer.
// The engine fills Vals with descriptors of memory it owns; such memory stays
// valid until the owning transaction ends or is next written to.
type Val struct {
	Size uintptr
	Data *byte
}

// ValOf describes b without copying it.
func ValOf(b []byte) Val {
	return Val{Size: uintptr(len(b)), Data: unsafe.SliceData(b)}
}

func (v *Val) Set(b []byte) {
	v.Size = uintptr(len(b))
	v.Data = unsafe.SliceData(b)
}

func (v *Val) Reset() {
	v.Size = 0
	v.Data = nil
}

// IsNil reports whether v describes no region at all, as opposed to an empty
// one.
func (v *Val) IsNil() bool {
	return v == nil || v.Data == nil
}

// Bytes returns the described region without copying it.
func (v *Val) Bytes() []byte {
	if v.IsNil() {
		return nil
	}
	return unsafe.Slice(v.Data, v.Size)
}
