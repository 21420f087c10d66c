// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer bridges optional columns and plain Go values.

Nullable columns scan into pointers; the domain keeps zero values instead.

  - Val: dereference, zero value when nil.
  - Nullable: pointer to v, nil when v is the zero value.
*/
package pointer

// Val dereferences p, returning the zero value of T if p is nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Nullable returns nil for the zero value of T, so it is stored as SQL NULL.
func Nullable[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
