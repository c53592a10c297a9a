package cache

import (
	"strings"
	"testing"

	"github.com/gobwas/glob"

	"github.com/inkpress/inkpress/store"
)

func TestListKey_Deterministic(t *testing.T) {
	filters := store.ListFilters{OwnerID: "alice", Status: store.StatusPublished, Search: "go"}
	page := store.Page{Number: 2, Size: 20}

	if ListKey(filters, page) != ListKey(filters, page) {
		t.Error("same query must produce the same key")
	}
}

func TestListKey_VariesWithParameters(t *testing.T) {
	base := store.ListFilters{OwnerID: "alice"}
	page := store.Page{Number: 1, Size: 20}

	baseKey := ListKey(base, page)

	variants := []string{
		ListKey(store.ListFilters{OwnerID: "alice", Status: store.StatusDraft}, page),
		ListKey(store.ListFilters{OwnerID: "alice", Search: "x"}, page),
		ListKey(base, store.Page{Number: 2, Size: 20}),
		ListKey(base, store.Page{Number: 1, Size: 50}),
	}
	for i, v := range variants {
		if v == baseKey {
			t.Errorf("variant %d collided with the base key", i)
		}
	}
}

func TestOwnerListPattern_MatchesOnlyThatOwner(t *testing.T) {
	aliceKey := ListKey(store.ListFilters{OwnerID: "alice"}, store.Page{Number: 1, Size: 20})
	bobKey := ListKey(store.ListFilters{OwnerID: "bob"}, store.Page{Number: 1, Size: 20})
	allKey := ListKey(store.ListFilters{}, store.Page{Number: 1, Size: 20})

	g := glob.MustCompile(OwnerListPattern("alice"))
	if !g.Match(aliceKey) {
		t.Error("owner pattern must match the owner's list keys")
	}
	if g.Match(bobKey) {
		t.Error("owner pattern must not match another owner's keys")
	}
	if g.Match(allKey) {
		t.Error("owner pattern must not match unfiltered list keys")
	}

	all := glob.MustCompile(ListPattern())
	for _, k := range []string{aliceKey, bobKey, allKey} {
		if !all.Match(k) {
			t.Errorf("list pattern must match every list key, missed %s", k)
		}
	}
	if all.Match(RecordKey("r1")) {
		t.Error("list pattern must not match record keys")
	}
}

func TestRecordKeyAndPattern(t *testing.T) {
	if RecordKey("r1") != RecordPattern("r1") {
		t.Error("record pattern addresses exactly the record key")
	}
	if !strings.HasPrefix(RecordKey("r1"), "inkpress:record:") {
		t.Errorf("unexpected record key layout: %s", RecordKey("r1"))
	}
}
