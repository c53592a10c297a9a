package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/inkpress/inkpress/store"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World!!", "hello-world"},
		{"Hello, World", "hello-world"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"ALL CAPS TITLE", "all-caps-title"},
		{"already-a-slug", "already-a-slug"},
		{"Numbers 123 work", "numbers-123-work"},
		{"---", "untitled"},
		{"", "untitled"},
		{"trailing punctuation...", "trailing-punctuation"},
		{"unicode åäö stays", "unicode-åäö-stays"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.title); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSlugify_CapsLength(t *testing.T) {
	long := strings.Repeat("word-", 40)
	slug := Slugify(long)
	if len(slug) > maxSlugLength {
		t.Errorf("slug length %d exceeds cap %d", len(slug), maxSlugLength)
	}
	if strings.HasSuffix(slug, "-") {
		t.Errorf("capped slug must not end with a hyphen: %q", slug)
	}
}

func TestSlugify_CapFallsOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			// A two-byte letter straddles the cap; the whole rune is dropped
			name:  "multibyte letter at the cap",
			title: strings.Repeat("a", maxSlugLength-1) + "é",
			want:  strings.Repeat("a", maxSlugLength-1),
		},
		{
			name:  "all multibyte letters",
			title: strings.Repeat("é", 50),
			want:  strings.Repeat("é", maxSlugLength/2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.title)
			if !utf8.ValidString(got) {
				t.Fatalf("slug is not valid UTF-8: %q", got)
			}
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestDisambiguateSlug_FreeBase(t *testing.T) {
	s := newFakeStore()

	slug, err := disambiguateSlug(context.Background(), s, "alice", "my-post", "")
	if err != nil {
		t.Fatalf("disambiguation failed: %v", err)
	}
	if slug != "my-post" {
		t.Errorf("free base should be used unchanged, got %q", slug)
	}
}

func TestDisambiguateSlug_AppendsSuffix(t *testing.T) {
	s := newFakeStore()
	ctx := context.Background()

	s.put(&store.Record{ID: "r1", OwnerID: "alice", Slug: "my-post"})

	slug, err := disambiguateSlug(ctx, s, "alice", "my-post", "")
	if err != nil {
		t.Fatalf("disambiguation failed: %v", err)
	}
	if slug != "my-post-1" {
		t.Errorf("expected my-post-1, got %q", slug)
	}

	s.put(&store.Record{ID: "r2", OwnerID: "alice", Slug: "my-post-1"})

	slug, err = disambiguateSlug(ctx, s, "alice", "my-post", "")
	if err != nil {
		t.Fatalf("disambiguation failed: %v", err)
	}
	if slug != "my-post-2" {
		t.Errorf("expected my-post-2, got %q", slug)
	}
}

func TestDisambiguateSlug_OtherOwnersDoNotCollide(t *testing.T) {
	s := newFakeStore()

	s.put(&store.Record{ID: "r1", OwnerID: "bob", Slug: "my-post"})

	slug, err := disambiguateSlug(context.Background(), s, "alice", "my-post", "")
	if err != nil {
		t.Fatalf("disambiguation failed: %v", err)
	}
	if slug != "my-post" {
		t.Errorf("slugs are scoped per owner, got %q", slug)
	}
}

func TestDisambiguateSlug_SelfIsNotACollision(t *testing.T) {
	s := newFakeStore()

	s.put(&store.Record{ID: "r1", OwnerID: "alice", Slug: "my-post"})

	// Editing r1 with an unchanged title must keep its own slug
	slug, err := disambiguateSlug(context.Background(), s, "alice", "my-post", "r1")
	if err != nil {
		t.Fatalf("disambiguation failed: %v", err)
	}
	if slug != "my-post" {
		t.Errorf("record must not collide with itself, got %q", slug)
	}
}

func TestDisambiguateSlug_Exhaustion(t *testing.T) {
	s := newFakeStore()
	ctx := context.Background()

	s.put(&store.Record{ID: "r0", OwnerID: "alice", Slug: "busy", CreatedAt: time.Now().UnixMilli()})
	for i := 1; i < maxSlugAttempts; i++ {
		s.put(&store.Record{
			ID:      fmt.Sprintf("r%d", i),
			OwnerID: "alice",
			Slug:    fmt.Sprintf("busy-%d", i),
		})
	}

	_, err := disambiguateSlug(ctx, s, "alice", "busy", "")
	var exhausted *SlugExhaustionError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected SlugExhaustionError, got %v", err)
	}
	if exhausted.Attempts != maxSlugAttempts {
		t.Errorf("expected %d attempts, got %d", maxSlugAttempts, exhausted.Attempts)
	}
}
