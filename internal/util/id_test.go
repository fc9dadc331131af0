package util

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	id := NewID("ses")
	if !strings.HasPrefix(id, "ses_") || len(id) != len("ses_")+32 {
		t.Fatalf("id = %q", id)
	}
	if NewID("") == NewID("") {
		t.Fatal("ids should be unique")
	}
	if strings.Contains(NewID(""), "_") {
		t.Fatal("unprefixed id should not contain a separator")
	}
}
