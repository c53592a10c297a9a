package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"

	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const recordsTable = "records"

// SQLStore implements Store over database/sql with a goqu query builder.
// Supports sqlite3 and mysql drivers; the dialect is chosen at construction.
type SQLStore struct {
	db           *sql.DB
	gq           *goqu.Database
	driver       string
	queryTimeout time.Duration
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)

// Options configures a SQLStore
type Options struct {
	Driver       string // "sqlite3" or "mysql"
	DSN          string
	QueryTimeout time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// NewSQLStore opens the durable store and ensures the schema exists
func NewSQLStore(opts Options) (*SQLStore, error) {
	dsn := opts.DSN
	if opts.Driver == "sqlite3" && !strings.Contains(dsn, ":memory:") {
		if strings.Contains(dsn, "?") {
			dsn += "&_journal_mode=WAL&_busy_timeout=5000"
		} else {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open durable store: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 8
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn
	if opts.Driver == "sqlite3" {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	s := &SQLStore{
		db:           db,
		gq:           goqu.Dialect(opts.Driver).DB(db),
		driver:       opts.Driver,
		queryTimeout: timeout,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// GetRecord returns the record or (nil, nil) if absent
func (s *SQLStore) GetRecord(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec Record
	found, err := s.gq.From(recordsTable).
		Where(goqu.C("id").Eq(id)).
		ScanStructContext(ctx, &rec)
	if err != nil {
		return nil, transient("get", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// GetRecordBySlug returns the owner's record with the given slug or (nil, nil)
func (s *SQLStore) GetRecordBySlug(ctx context.Context, ownerID, slug string) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec Record
	found, err := s.gq.From(recordsTable).
		Where(goqu.C("owner_id").Eq(ownerID), goqu.C("slug").Eq(slug)).
		ScanStructContext(ctx, &rec)
	if err != nil {
		return nil, transient("get_by_slug", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (s *SQLStore) listConditions(filters ListFilters) []goqu.Expression {
	conds := []goqu.Expression{goqu.C("deleted").IsFalse()}
	if filters.OwnerID != "" {
		conds = append(conds, goqu.C("owner_id").Eq(filters.OwnerID))
	}
	if filters.Status != "" {
		conds = append(conds, goqu.C("status").Eq(string(filters.Status)))
	}
	if filters.Search != "" {
		conds = append(conds, s.searchCondition(filters.Search))
	}
	return conds
}

// searchCondition builds a substring match with LIKE metacharacters in the
// user-supplied term neutralized. SQLite treats a backslash as a literal
// unless an ESCAPE clause names it; the clause itself is spelled per dialect
// because MySQL string literals escape backslashes and SQLite's do not.
func (s *SQLStore) searchCondition(term string) goqu.Expression {
	escape := `ESCAPE '\'`
	if s.driver == "mysql" {
		escape = `ESCAPE '\\'`
	}
	return goqu.L("title LIKE ? "+escape, "%"+escapeLike(term)+"%")
}

// escapeLike backslash-escapes LIKE metacharacters in search terms
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// ListRecords returns non-deleted records matching the filters, newest first
func (s *SQLStore) ListRecords(ctx context.Context, filters ListFilters, page Page) ([]*Record, Pagination, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = 20
	}

	conds := s.listConditions(filters)

	total, err := s.gq.From(recordsTable).Where(conds...).CountContext(ctx)
	if err != nil {
		return nil, Pagination{}, transient("list_count", err)
	}

	var recs []*Record
	err = s.gq.From(recordsTable).
		Where(conds...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(page.Size)).
		Offset(uint((page.Number - 1) * page.Size)).
		ScanStructsContext(ctx, &recs)
	if err != nil {
		return nil, Pagination{}, transient("list", err)
	}

	totalPages := total / int64(page.Size)
	if total%int64(page.Size) != 0 {
		totalPages++
	}

	return recs, Pagination{
		Page:       page.Number,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// InsertRecord inserts a new record row
func (s *SQLStore) InsertRecord(ctx context.Context, rec *Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.gq.Insert(recordsTable).Rows(rec).Executor().ExecContext(ctx)
	if err != nil {
		return transient("insert", err)
	}
	return nil
}

// ConditionalUpdate applies the patch and bumps version by one in a single
// statement conditioned on version = expectedVersion. The condition and the
// write ride the same statement so a concurrent mutator cannot interleave
// between check and set.
func (s *SQLStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, patch Patch) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updates := goqu.Record{
		"version":    expectedVersion + 1,
		"updated_at": time.Now().UnixMilli(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Body != nil {
		updates["body"] = *patch.Body
	}
	if patch.Slug != nil {
		updates["slug"] = *patch.Slug
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.PublishedAt != nil {
		updates["published_at"] = *patch.PublishedAt
	}
	if patch.Deleted != nil {
		updates["deleted"] = *patch.Deleted
	}
	if patch.ViewCount != nil {
		updates["view_count"] = *patch.ViewCount
	}

	res, err := s.gq.Update(recordsTable).
		Set(updates).
		Where(goqu.C("id").Eq(id), goqu.C("version").Eq(expectedVersion)).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, transient("conditional_update", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, transient("conditional_update", err)
	}
	return rows, nil
}

// RatchetViewCount sets view_count to the larger of its current value and
// candidate. The comparison happens inside the store, so duplicate or
// out-of-order reconciliation passes are idempotent.
func (s *SQLStore) RatchetViewCount(ctx context.Context, id string, candidate int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// SQLite's two-argument MAX is the scalar form; MySQL calls it GREATEST
	ratchet := goqu.L("MAX(view_count, ?)", candidate)
	if s.driver == "mysql" {
		ratchet = goqu.L("GREATEST(view_count, ?)", candidate)
	}

	res, err := s.gq.Update(recordsTable).
		Set(goqu.Record{"view_count": ratchet}).
		Where(goqu.C("id").Eq(id), goqu.C("view_count").Lt(candidate)).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, transient("ratchet_view_count", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, transient("ratchet_view_count", err)
	}
	return rows, nil
}

// SlugExists reports whether ownerID already owns a record with slug
func (s *SQLStore) SlugExists(ctx context.Context, ownerID, slug string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.gq.From(recordsTable).
		Where(goqu.C("owner_id").Eq(ownerID), goqu.C("slug").Eq(slug)).
		CountContext(ctx)
	if err != nil {
		return false, transient("slug_exists", err)
	}
	return count > 0, nil
}

// Close closes the underlying connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate() error {
	for _, stmt := range schemaStatements(s.driver) {
		if _, err := s.db.Exec(stmt); err != nil {
			// MySQL lacks IF NOT EXISTS on CREATE INDEX; tolerate reruns
			if s.driver == "mysql" && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Debug().Str("driver", s.driver).Msg("Durable store schema ensured")
	return nil
}
