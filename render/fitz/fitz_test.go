package fitz

import (
	"errors"
	"testing"
)

func TestNewWithoutMuPDF(t *testing.T) {
	if Available {
		t.Skip("MuPDF linked in")
	}
	if _, err := New([]byte("%PDF-1.4")); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}
