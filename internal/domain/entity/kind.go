// Package entity defines the kinds of records kept in the semantic index.
package entity

import (
	"fmt"

	"github.com/fal1winter/mentorsys/internal/domain"
)

// Kind identifies an entity kind and, through it, its vector collection.
type Kind string

// Supported entity kinds.
const (
	Paper   Kind = "paper"
	Note    Kind = "note"
	Mentor  Kind = "mentor"
	Student Kind = "student"
)

var all = []Kind{Paper, Note, Mentor, Student}

// All returns every kind in a fixed order.
func All() []Kind {
	out := make([]Kind, len(all))
	copy(out, all)
	return out
}

// Parse validates s as an entity kind.
func Parse(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case Paper, Note, Mentor, Student:
		return true
	}
	return false
}

// Collection returns the vector collection name backing the kind.
func (k Kind) Collection() string {
	switch k {
	case Paper:
		return "papers"
	case Note:
		return "notes"
	case Mentor:
		return "mentor_profiles"
	case Student:
		return "student_profiles"
	}
	return ""
}

// Plural returns the name used for the kind in aggregated responses.
func (k Kind) Plural() string {
	if !k.Valid() {
		return ""
	}
	return string(k) + "s"
}

func (k Kind) String() string { return string(k) }
