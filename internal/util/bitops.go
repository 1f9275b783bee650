package util

// Align rounds n up to the next multiple of alignment, which must be a power of two.
func Align(n int, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
