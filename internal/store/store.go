// Package store persists inventory reports to PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/arqrel/internal/model"
)

const batchSize = 100

// fileColumns is the column count of one inventory_files row.
const fileColumns = 12

type Store struct{ Pool *pgxpool.Pool }

func Open(ctx context.Context, url string) (*Store, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &Store{Pool: p}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS inventory_scans (
  id UUID PRIMARY KEY,
  base_dir TEXT NOT NULL,
  time_begin TIMESTAMPTZ NOT NULL,
  time_finish TIMESTAMPTZ NOT NULL,
  time_taken_ms BIGINT NOT NULL,
  directories_found BIGINT NOT NULL,
  files_found BIGINT NOT NULL,
  by_type JSONB NOT NULL,
  summary_only BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS inventory_files (
  id BIGSERIAL PRIMARY KEY,
  scan_id UUID NOT NULL REFERENCES inventory_scans(id) ON DELETE CASCADE,
  seq INT NOT NULL,
  name TEXT NOT NULL,
  size_bytes BIGINT NOT NULL,
  size_formatted TEXT NOT NULL,
  permissions TEXT NOT NULL,
  creation_time TEXT NOT NULL,
  last_access_time TEXT NOT NULL,
  last_modify_time TEXT NOT NULL,
  extension TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  absolute_path TEXT NOT NULL,
  UNIQUE (scan_id, seq)
);

CREATE INDEX IF NOT EXISTS inventory_files_hash_idx ON inventory_files (content_hash);
`)
	return err
}

// ScanRow is one stored scan summary.
type ScanRow struct {
	ID          uuid.UUID
	Summary     model.ScanSummary
	SummaryOnly bool
	CreatedAt   time.Time
}

// SaveReport stores report under a fresh scan id in one transaction. Records
// are skipped when summaryOnly is set.
func (s *Store) SaveReport(ctx context.Context, report *model.Report, summaryOnly bool) (uuid.UUID, error) {
	id := uuid.New()
	byType, err := json.Marshal(byTypeDoc(report.Summary))
	if err != nil {
		return uuid.Nil, err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sum := report.Summary
	_, err = tx.Exec(ctx, `
		INSERT INTO inventory_scans (
		  id, base_dir, time_begin, time_finish, time_taken_ms,
		  directories_found, files_found, by_type, summary_only
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
	`, id, sum.BaseDir, sum.TimeBegin, sum.TimeFinish, sum.TimeTaken.Milliseconds(),
		sum.DirectoriesFound, sum.FilesFound, string(byType), summaryOnly)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert scan: %w", err)
	}

	if !summaryOnly {
		if err := batchInsertFiles(ctx, tx, id, report.Records); err != nil {
			return uuid.Nil, fmt.Errorf("batch insert files: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

const scanColumns = `id, base_dir, time_begin, time_finish, time_taken_ms,
	directories_found, files_found, by_type, summary_only, created_at`

// RecentScans returns up to limit scans, newest first.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]ScanRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+scanColumns+`
		FROM inventory_scans
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadReport rebuilds the report stored under id. Summary-only scans come
// back without records.
func (s *Store) LoadReport(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	row, err := scanRow(s.Pool.QueryRow(ctx, `
		SELECT `+scanColumns+`
		FROM inventory_scans
		WHERE id=$1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scan %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	report := &model.Report{Summary: row.Summary}
	if !row.SummaryOnly {
		if report.Records, err = s.LoadRecords(ctx, id); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func scanRow(r pgx.Row) (ScanRow, error) {
	var (
		row     ScanRow
		takenMS int64
		byType  []byte
	)
	if err := r.Scan(&row.ID, &row.Summary.BaseDir, &row.Summary.TimeBegin, &row.Summary.TimeFinish,
		&takenMS, &row.Summary.DirectoriesFound, &row.Summary.FilesFound, &byType,
		&row.SummaryOnly, &row.CreatedAt); err != nil {
		return ScanRow{}, err
	}
	row.Summary.TimeTaken = time.Duration(takenMS) * time.Millisecond
	cats, err := parseByType(byType)
	if err != nil {
		return ScanRow{}, fmt.Errorf("scan %s: %w", row.ID, err)
	}
	row.Summary.Categories = cats
	return row, nil
}

// LoadRecords returns the stored records of a scan in discovery order.
func (s *Store) LoadRecords(ctx context.Context, id uuid.UUID) ([]model.FileRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT name, size_bytes, size_formatted, permissions, creation_time,
		       last_access_time, last_modify_time, extension, content_hash, absolute_path
		FROM inventory_files
		WHERE scan_id=$1
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FileRecord
	for rows.Next() {
		var (
			r    model.FileRecord
			size int64
		)
		if err := rows.Scan(&r.Name, &size, &r.SizeFormatted, &r.Permissions, &r.CreationTime,
			&r.LastAccessTime, &r.LastModifyTime, &r.Extension, &r.ContentHash, &r.AbsolutePath); err != nil {
			return nil, err
		}
		r.SizeBytes = uint64(size)
		out = append(out, r)
	}
	return out, rows.Err()
}

// batchInsertFiles inserts records in groups of batchSize using
// multi-value INSERT statements.
func batchInsertFiles(ctx context.Context, tx pgx.Tx, scanID uuid.UUID, records []model.FileRecord) error {
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		sql, args := fileInsert(scanID, start, records[start:end])
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return nil
}

// fileInsert builds one multi-value INSERT for chunk. offset is the
// discovery index of chunk[0].
func fileInsert(scanID uuid.UUID, offset int, chunk []model.FileRecord) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
INSERT INTO inventory_files (
  scan_id, seq, name, size_bytes, size_formatted, permissions, creation_time,
  last_access_time, last_modify_time, extension, content_hash, absolute_path
) VALUES `)
	args := make([]any, 0, len(chunk)*fileColumns)
	for i, r := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i*fileColumns + 1
		sb.WriteString(fmt.Sprintf(
			"($%d::uuid, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args,
			scanID,
			offset+i,
			r.Name,
			clampSize(r.SizeBytes),
			r.SizeFormatted,
			r.Permissions,
			r.CreationTime,
			r.LastAccessTime,
			r.LastModifyTime,
			r.Extension,
			r.ContentHash,
			r.AbsolutePath,
		)
	}
	sb.WriteString(`
ON CONFLICT (scan_id, seq) DO NOTHING`)
	return sb.String(), args
}

// clampSize maps a byte count onto BIGINT.
func clampSize(n uint64) int64 {
	const maxBigint = 1<<63 - 1
	if n > maxBigint {
		return maxBigint
	}
	return int64(n)
}

func byTypeDoc(s model.ScanSummary) map[string]int64 {
	out := make(map[string]int64, model.NumCategories)
	for _, cat := range model.AllCategories() {
		out[model.CategoryKey(cat)] = s.Categories[cat]
	}
	return out
}

func parseByType(data []byte) (map[model.FileCategory]int64, error) {
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	cats := model.NewCategoryCounts()
	var errs []error
	for key, n := range raw {
		cat, err := model.ParseCategoryKey(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cats[cat] = n
	}
	return cats, errors.Join(errs...)
}
