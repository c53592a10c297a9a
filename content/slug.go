package content

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/telemetry"
)

const (
	maxSlugLength   = 80
	maxSlugAttempts = 100
)

// Slugify normalizes a title into a URL slug: lowercased, runs of
// non-alphanumeric characters collapsed to single hyphens, trimmed,
// length-capped. An empty result falls back to "untitled".
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := true // Suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		// Back up to a rune boundary; a multi-byte letter straddling the cap
		// must not be cut in half
		cut := maxSlugLength
		for cut > 0 && !utf8.RuneStart(slug[cut]) {
			cut--
		}
		slug = strings.Trim(slug[:cut], "-")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

// disambiguateSlug finds a slug free for the owner by appending an
// incrementing numeric suffix to the base. selfID excludes the record being
// mutated from the collision check so a title edit that keeps the same slug
// is not treated as a collision with itself.
func disambiguateSlug(ctx context.Context, s store.Store, ownerID, base, selfID string) (string, error) {
	candidate := base
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		telemetry.SlugAttemptsTotal.Inc()

		existing, err := s.GetRecordBySlug(ctx, ownerID, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil || existing.ID == selfID {
			return candidate, nil
		}

		candidate = fmt.Sprintf("%s-%d", base, attempt+1)
	}

	return "", &SlugExhaustionError{OwnerID: ownerID, Base: base, Attempts: maxSlugAttempts}
}
