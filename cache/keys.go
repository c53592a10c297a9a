package cache

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/inkpress/inkpress/store"
)

// Key layout:
//
//	inkpress:record:<id>                single-record entries
//	inkpress:list:all:<hash>            list entries with no owner filter
//	inkpress:list:o.<owner>:<hash>      list entries filtered to one owner
//
// The owner segment exists so invalidation can drop an owner's lists by
// prefix; the hash folds the remaining filter/pagination parameters, which
// cannot be enumerated precisely.
const (
	recordKeyPrefix = "inkpress:record:"
	listKeyPrefix   = "inkpress:list:"
)

// RecordKey returns the cache key for a single-record entry
func RecordKey(id string) string {
	return recordKeyPrefix + id
}

// ListKey returns the deterministic cache key for a listing query
func ListKey(filters store.ListFilters, page store.Page) string {
	h := xxhash.New()
	h.WriteString(string(filters.Status))
	h.WriteString("\x00")
	h.WriteString(filters.Search)
	h.WriteString("\x00")
	h.WriteString(strconv.Itoa(page.Number))
	h.WriteString("\x00")
	h.WriteString(strconv.Itoa(page.Size))

	owner := "all"
	if filters.OwnerID != "" {
		owner = "o." + filters.OwnerID
	}
	return fmt.Sprintf("%s%s:%016x", listKeyPrefix, owner, h.Sum64())
}

// RecordPattern matches the single-record entry for id
func RecordPattern(id string) string {
	return recordKeyPrefix + id
}

// ListPattern matches every list entry
func ListPattern() string {
	return listKeyPrefix + "*"
}

// OwnerListPattern matches every list entry filtered to the given owner
func OwnerListPattern(ownerID string) string {
	return listKeyPrefix + "o." + ownerID + ":*"
}
