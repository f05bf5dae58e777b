package services

import (
	"errors"
	"testing"

	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
)

func TestSlugifyShort(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"OOP", "oop"},
		{"  CSE 1115 ", "cse-1115"},
		{"data_structures", "data-structures"},
		{"DBMS--II", "dbms-ii"},
		{"C++", "c"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SlugifyShort(tc.in); got != tc.want {
			t.Errorf("SlugifyShort(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNamespaceName(t *testing.T) {
	got, err := NamespaceName("course", "CSE 1115")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "course:cse-1115" {
		t.Fatalf("NamespaceName = %q", got)
	}

	// Same short code always maps to the same namespace.
	again, err := NamespaceName("course", "cse-1115")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != got {
		t.Fatalf("namespace not stable: %q vs %q", again, got)
	}
}

func TestNamespaceNameNoPrefix(t *testing.T) {
	got, err := NamespaceName("", "OOP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "oop" {
		t.Fatalf("NamespaceName = %q", got)
	}
}

func TestNamespaceNameRejectsEmptySlug(t *testing.T) {
	_, err := NamespaceName("course", "???")
	if err == nil {
		t.Fatal("expected error for short code with no usable characters")
	}
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
