package events

import "testing"

func TestGlobFilter_EmptyMatchesAll(t *testing.T) {
	f, err := NewGlobFilter(nil)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	for _, kind := range []Kind{KindCreated, KindEdited, KindPublished, KindDeleted} {
		if !f.Match(kind) {
			t.Errorf("empty filter must match %s", kind)
		}
	}
}

func TestGlobFilter_Patterns(t *testing.T) {
	f, err := NewGlobFilter([]string{"publish*", "deleted"})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}

	if !f.Match(KindPublished) {
		t.Error("publish* must match published")
	}
	if !f.Match(KindDeleted) {
		t.Error("deleted must match exactly")
	}
	if f.Match(KindCreated) || f.Match(KindEdited) {
		t.Error("unlisted kinds must not match")
	}
}

func TestGlobFilter_InvalidPattern(t *testing.T) {
	if _, err := NewGlobFilter([]string{"[unclosed"}); err == nil {
		t.Error("expected error for invalid glob pattern")
	}
}
