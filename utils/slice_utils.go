package utils

// SliceSelect provides a way of querying a specific element from a slice's elements into a slice of its own.
func SliceSelect[T any, K any](x []T, f func(x T) K) []K {
	r := make([]K, len(x))
	for i := 0; i < len(x); i++ {
		r[i] = f(x[i])
	}
	return r
}

// SliceWhere provides a way of querying specific elements which fit some criteria into a new slice.
func SliceWhere[T any](x []T, f func(x T) bool) []T {
	r := make([]T, 0)
	for i := 0; i < len(x); i++ {
		if f(x[i]) {
			r = append(r, x[i])
		}
	}
	return r
}

// SliceUniqueBy returns the elements of a slice whose key has not been seen before, preserving order.
func SliceUniqueBy[T any, K comparable](x []T, key func(x T) K) []T {
	seen := make(map[K]struct{}, len(x))
	r := make([]T, 0, len(x))
	for i := 0; i < len(x); i++ {
		k := key(x[i])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		r = append(r, x[i])
	}
	return r
}
