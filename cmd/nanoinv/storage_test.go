package main

import "testing"

func TestParseStorage(t *testing.T) {
	for _, name := range []string{"inmem", "kvmap"} {
		s, err := parseStorage(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if s == nil {
			t.Errorf("%s: nil storage", name)
		}
	}

	if _, err := parseStorage("mysql"); err == nil {
		t.Error("expected error for unknown storage")
	}
}
