package pure

import "errors"

var (
	// ErrUnknownField is returned when a constraint references a field that
	// ConstraintParameters does not expose.
	ErrUnknownField = errors.New("unknown constraint field")

	// ErrTypeMismatch is returned when a constraint value does not match the
	// kind of the field it is compared against.
	ErrTypeMismatch = errors.New("constraint value type mismatch")

	// ErrInvalidRange is returned by Between when the low bound exceeds the high bound.
	ErrInvalidRange = errors.New("invalid range")

	// ErrEmptyMembership is returned by In when no values are given.
	ErrEmptyMembership = errors.New("empty membership list")

	// ErrCatalog is returned when a slot catalog is malformed.
	ErrCatalog = errors.New("malformed slot catalog")
)
