package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CeilDiv returns ceil(n / d) for non-negative n and positive d.
func CeilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
func AlignUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
