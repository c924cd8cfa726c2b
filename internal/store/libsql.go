package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/nodeforge/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/nodeforge.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Documents ---

// PutDocument inserts or replaces a document and bumps its revision.
func (s *LibSQLStore) PutDocument(ctx context.Context, doc *DocumentRecord) error {
	if doc.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "document name is empty")
	}
	now := time.Now().UTC()
	var revision int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (name, path, parent_class, body, revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET path=excluded.path, parent_class=excluded.parent_class,
		   body=excluded.body, revision=documents.revision + 1, updated_at=excluded.updated_at
		 RETURNING revision`,
		doc.Name, nullStr(doc.Path), nullStr(doc.ParentClass), string(doc.Body), timeOrNow(doc.CreatedAt), now,
	).Scan(&revision)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "put document %q", doc.Name).WithCause(err)
	}
	doc.Revision = revision
	doc.UpdatedAt = now
	return nil
}

func (s *LibSQLStore) GetDocument(ctx context.Context, name string) (*DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, path, parent_class, body, revision, created_at, updated_at FROM documents WHERE name = ?`, name)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("document", name)
	}
	return doc, err
}

func (s *LibSQLStore) ListDocuments(ctx context.Context) ([]*DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, parent_class, body, revision, created_at, updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *LibSQLStore) DeleteDocument(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "document", name)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	doc := &DocumentRecord{}
	var path, parent sql.NullString
	var body string
	if err := row.Scan(&doc.Name, &path, &parent, &body, &doc.Revision, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Path = path.String
	doc.ParentClass = parent.String
	doc.Body = json.RawMessage(body)
	return doc, nil
}

// --- Assets ---

func (s *LibSQLStore) UpsertAsset(ctx context.Context, asset *AssetRecord) error {
	if asset.Path == "" {
		return schema.NewError(schema.ErrCodeValidation, "asset path is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (path, name, class, body, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET name=excluded.name, class=excluded.class, body=excluded.body, updated_at=excluded.updated_at`,
		asset.Path, asset.Name, nullStr(asset.Class), string(asset.Body), timeOrNow(asset.UpdatedAt),
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "upsert asset %q", asset.Path).WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetAsset(ctx context.Context, path string) (*AssetRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, name, class, body, updated_at FROM assets WHERE path = ?`, path)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("asset", path)
	}
	return a, err
}

func (s *LibSQLStore) ListAssets(ctx context.Context, filter AssetFilter) ([]*AssetRecord, error) {
	var where []string
	var args []any

	if len(filter.PathPrefixes) > 0 {
		var ors []string
		for _, p := range filter.PathPrefixes {
			ors = append(ors, "path LIKE ? ESCAPE '\\'")
			args = append(args, likePrefix(p))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.Class != "" {
		where = append(where, "class = ?")
		args = append(args, filter.Class)
	}

	query := "SELECT path, name, class, body, updated_at FROM assets"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY path"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*AssetRecord
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *LibSQLStore) DeleteAsset(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE path = ?`, path)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "asset", path)
}

func scanAsset(row rowScanner) (*AssetRecord, error) {
	a := &AssetRecord{}
	var class sql.NullString
	var body string
	if err := row.Scan(&a.Path, &a.Name, &class, &body, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Class = class.String
	a.Body = json.RawMessage(body)
	return a, nil
}

// likePrefix escapes LIKE wildcards in p and appends a trailing %.
func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

// --- Scheduled Jobs ---

func (s *LibSQLStore) CreateScheduledJob(ctx context.Context, job *ScheduledJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (id, task, cron_expression, enabled, last_run_at, next_run_at, last_run_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Task, job.CronExpression, job.Enabled,
		nullTime(job.LastRunAt), nullTime(job.NextRunAt), nullStr(job.LastRunStatus), timeOrNow(job.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return schema.NewErrorf(schema.ErrCodeConflict, "scheduled job %q already exists", job.ID).WithCause(err)
	}
	return err
}

func (s *LibSQLStore) GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task, cron_expression, enabled, last_run_at, next_run_at, last_run_status, created_at
		 FROM scheduled_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled job", id)
	}
	return job, err
}

func (s *LibSQLStore) UpdateScheduledJob(ctx context.Context, id string, update ScheduledJobUpdate) error {
	var sets []string
	var args []any

	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, *update.Enabled)
	}
	if update.CronExpression != "" {
		sets = append(sets, "cron_expression = ?")
		args = append(args, update.CronExpression)
	}
	if update.LastRunAt != nil {
		sets = append(sets, "last_run_at = ?")
		args = append(args, *update.LastRunAt)
	}
	if update.NextRunAt != nil {
		sets = append(sets, "next_run_at = ?")
		args = append(args, *update.NextRunAt)
	}
	if update.LastRunStatus != "" {
		sets = append(sets, "last_run_status = ?")
		args = append(args, update.LastRunStatus)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE scheduled_jobs SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled job", id)
}

func (s *LibSQLStore) ListScheduledJobs(ctx context.Context, filter ScheduledJobFilter) ([]*ScheduledJob, error) {
	var where []string
	var args []any

	if filter.Enabled != nil {
		where = append(where, "enabled = ?")
		args = append(args, *filter.Enabled)
	}
	if filter.Task != "" {
		where = append(where, "task = ?")
		args = append(args, filter.Task)
	}

	query := "SELECT id, task, cron_expression, enabled, last_run_at, next_run_at, last_run_status, created_at FROM scheduled_jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *LibSQLStore) DeleteScheduledJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled job", id)
}

func scanJob(row rowScanner) (*ScheduledJob, error) {
	job := &ScheduledJob{}
	var lastRun, nextRun sql.NullTime
	var status sql.NullString
	if err := row.Scan(&job.ID, &job.Task, &job.CronExpression, &job.Enabled, &lastRun, &nextRun, &status, &job.CreatedAt); err != nil {
		return nil, err
	}
	if lastRun.Valid {
		job.LastRunAt = &lastRun.Time
	}
	if nextRun.Valid {
		job.NextRunAt = &nextRun.Time
	}
	job.LastRunStatus = status.String
	return job, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.ForgeError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
