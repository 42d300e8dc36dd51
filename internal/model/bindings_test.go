package model

import (
	"testing"

	"github.com/sesamestream/sesamestream/pkg/rdf"
)

func TestBindings_NilIsEmpty(t *testing.T) {
	var b *Bindings
	if _, ok := b.Lookup("x"); ok {
		t.Error("expected lookup on nil Bindings to miss")
	}
	if m := b.ToMap(); len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestBindings_PrependDoesNotMutateParent(t *testing.T) {
	parent := (*Bindings)(nil).Prepend("x", rdf.NewNamedNode("http://ex/a"))
	child := parent.Prepend("y", rdf.NewNamedNode("http://ex/b"))

	if _, ok := parent.Lookup("y"); ok {
		t.Error("parent should not see child's binding")
	}
	if _, ok := child.Lookup("x"); !ok {
		t.Error("child should see parent's binding")
	}
}

func TestBindings_MostRecentWins(t *testing.T) {
	b := (*Bindings)(nil).
		Prepend("x", rdf.NewNamedNode("http://ex/old")).
		Prepend("x", rdf.NewNamedNode("http://ex/new"))

	v, ok := b.Lookup("x")
	if !ok {
		t.Fatal("expected a binding for x")
	}
	if !v.Equals(rdf.NewNamedNode("http://ex/new")) {
		t.Errorf("expected most recently prepended value to win, got %v", v)
	}
}

func TestBindings_ToMap(t *testing.T) {
	b := (*Bindings)(nil).
		Prepend("x", rdf.NewNamedNode("http://ex/a")).
		Prepend("y", rdf.NewNamedNode("http://ex/b"))

	m := b.ToMap()
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}
	if !m["x"].Equals(rdf.NewNamedNode("http://ex/a")) {
		t.Errorf("unexpected value for x: %v", m["x"])
	}
	if !m["y"].Equals(rdf.NewNamedNode("http://ex/b")) {
		t.Errorf("unexpected value for y: %v", m["y"])
	}
}
