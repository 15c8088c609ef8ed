package domain

import (
	"errors"
	"fmt"
)

// MaxSlugLength is the longest slug accepted.
const MaxSlugLength = 64

// ErrValidation is matched by every input validation error in this package.
var ErrValidation = errors.New("validation failed")

type SlugErrorKind int

const (
	SlugEmpty SlugErrorKind = iota
	SlugTooLong
	SlugInvalidCharacters
	SlugInvalidHyphenPosition
)

// SlugError reports why a raw string is not a valid slug.
type SlugError struct {
	Kind SlugErrorKind
	Len  int // set for SlugTooLong
}

func (e *SlugError) Error() string {
	switch e.Kind {
	case SlugEmpty:
		return "slug must not be empty"
	case SlugTooLong:
		return fmt.Sprintf("slug length %d exceeds maximum of %d", e.Len, MaxSlugLength)
	case SlugInvalidCharacters:
		return "slug must contain only lowercase letters, digits, and hyphens"
	case SlugInvalidHyphenPosition:
		return "slug must not start or end with a hyphen"
	default:
		return "invalid slug"
	}
}

func (e *SlugError) Unwrap() error { return ErrValidation }

// Slug identifies a monitor. The zero value is not a valid slug; use ParseSlug.
type Slug struct {
	s string
}

// ParseSlug validates raw and returns it as a Slug.
func ParseSlug(raw string) (Slug, error) {
	if raw == "" {
		return Slug{}, &SlugError{Kind: SlugEmpty}
	}
	if len(raw) > MaxSlugLength {
		return Slug{}, &SlugError{Kind: SlugTooLong, Len: len(raw)}
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return Slug{}, &SlugError{Kind: SlugInvalidCharacters}
		}
	}
	if raw[0] == '-' || raw[len(raw)-1] == '-' {
		return Slug{}, &SlugError{Kind: SlugInvalidHyphenPosition}
	}
	return Slug{s: raw}, nil
}

func (s Slug) String() string { return s.s }

func (s Slug) MarshalText() ([]byte, error) { return []byte(s.s), nil }

func (s *Slug) UnmarshalText(b []byte) error {
	parsed, err := ParseSlug(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
