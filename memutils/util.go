package memutils

import (
	"fmt"
	"strconv"
	"strings"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// KiB is the number of bytes in one unit of size or address used throughout memsim
const KiB = 1024

// Max returns the largest of its arguments
func Max[T constraints.Integer](first T, rest ...T) T {
	result := first
	for _, value := range rest {
		if value > result {
			result = value
		}
	}
	return result
}

// HexAddress renders an address expressed in KiB as a zero-padded byte address, e.g. 1024 -> 0x100000
func HexAddress(address int) string {
	return fmt.Sprintf("0x%06X", address*KiB)
}

// ParseHexAddress is the inverse of HexAddress. The input must be a byte address that falls on
// a KiB boundary; the 0x prefix is optional.
func ParseHexAddress(value string) (int, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	bytes, err := strconv.ParseUint(trimmed, 16, 63)
	if err != nil {
		return 0, cerrors.Wrapf(err, "address %q is not a hexadecimal number", value)
	}
	if bytes%KiB != 0 {
		return 0, cerrors.Newf("address %q is not aligned to 1 KiB", value)
	}
	return int(bytes / KiB), nil
}

// ParseSize parses a user-supplied size in KiB. Anything that isn't a positive integer
// produces InvalidSizeError.
func ParseSize(value string) (int, error) {
	size, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, cerrors.Wrapf(InvalidSizeError, "size %q is not a number", value)
	}
	if size <= 0 {
		return 0, cerrors.Wrapf(InvalidSizeError, "size is %d", size)
	}
	return size, nil
}
