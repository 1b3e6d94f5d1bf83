package catalog

import "testing"

func TestBuiltinNames(t *testing.T) {
	names := (Builtins{}).Names()
	expected := []string{"flashsale", "goods"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("expected %v, got %v", expected, names)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := (Builtins{}).Lookup("goods"); !ok {
		t.Fatalf("expected goods catalog")
	}
	if _, ok := (Builtins{}).Lookup("../goods"); ok {
		t.Fatalf("expected path-like names to be rejected")
	}
	if _, ok := (Builtins{}).Lookup("orders"); ok {
		t.Fatalf("expected unknown catalog to be missing")
	}
}
