//go:build debug_mem_utils

package memutils

// DebugValidate checks the consistency of a block store or simulator after it changes and
// panics on the first problem found. It only does work with the debug_mem_utils build tag.
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
