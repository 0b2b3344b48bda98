package util

// SameElements determines whether two slices have the same elements, with the same
// multiplicities, in any order.
func SameElements[T comparable](slice1 []T, slice2 []T) bool {
	if len(slice1) != len(slice2) {
		return false
	}

	counts := map[T]int{}
	for _, s := range slice1 {
		counts[s]++
	}
	for _, s := range slice2 {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}

	return true
}
