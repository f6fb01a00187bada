package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// Apply copies *src into dst when src is set. Used for partial (PATCH style) updates.
func Apply[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
