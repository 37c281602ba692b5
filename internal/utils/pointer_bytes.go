package utils

import (
	"unsafe"
)

// PointerToBytes returns the memory of *val as a byte slice, without copying.
func PointerToBytes[T any](val *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(val)), unsafe.Sizeof(*val))
}

// BytesToPointer reinterprets the start of b as a *T, without copying. The
// caller must make sure b is at least as large as T, and suitably aligned.
func BytesToPointer[T any](b []byte) *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}
