package memutils

import "github.com/cockroachdb/errors"

// Validatable is anything with an internal consistency check, such as a block store
type Validatable interface {
	Validate() error
}

// ValidateAll runs Validate on each object and combines every failure into one error
func ValidateAll(validatables ...Validatable) error {
	var combined error
	for _, validatable := range validatables {
		combined = errors.CombineErrors(combined, validatable.Validate())
	}
	return combined
}
