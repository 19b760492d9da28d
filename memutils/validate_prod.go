//go:build !debug_mem_utils

package memutils

// DebugValidate checks the consistency of a block store or simulator after it changes. Without
// the debug_mem_utils build tag it does nothing.
func DebugValidate(validatable Validatable) {
}
