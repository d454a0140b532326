package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK(11)
	if r.ID() != 11 {
		t.Errorf("ID() = %d", r.ID())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("embedding failed")
	r := NewError(12, err)
	if r.ID() != 12 {
		t.Errorf("ID() = %d", r.ID())
	}
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestCountOK(t *testing.T) {
	rs := []Result{NewOK(1), NewError(2, errors.New("x")), NewOK(3)}
	if got := CountOK(rs); got != 2 {
		t.Errorf("CountOK = %d, want 2", got)
	}
	if CountOK(nil) != 0 {
		t.Error("CountOK(nil) must be 0")
	}
}
