package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/entrel"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ entrel.AnalysisService = (*AnalysisService)(nil)

// AnalysisService implements entrel.AnalysisService using SQLite.
// The extraction is stored as JSON; entity names are also indexed in a
// separate table so analyses can be found by the entities they mention.
type AnalysisService struct {
	db *DB
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(db *DB) *AnalysisService {
	return &AnalysisService{db: db}
}

// timestampFormat keeps a fixed number of fractional digits so stored
// timestamps sort lexically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

const analysisColumns = "id, source_url, provider, model, extraction, tokens, truncated, fetch_error, content_hash, created_at"

// CreateAnalysis records a new analysis with a generated ID. CreatedAt is
// set to now unless already present. The analysis is only updated once it
// has been stored.
func (s *AnalysisService) CreateAnalysis(ctx context.Context, a *entrel.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}

	extraction, err := json.Marshal(a.Extraction)
	if err != nil {
		return fmt.Errorf("failed to encode extraction: %w", err)
	}

	id := uuid.New().String()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, a.SourceURL, a.Provider, a.Model, string(extraction), a.Tokens, a.Truncated,
		a.FetchError, a.ContentHash, createdAt.Format(timestampFormat)); err != nil {
		return err
	}

	for _, e := range a.Extraction.Entities {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (analysis_id, entity_id, name, type)
			VALUES (?, ?, ?, ?)
		`, id, e.ID, e.Name, string(e.Type)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	a.ID, a.CreatedAt = id, createdAt
	return nil
}

// FindAnalysisByID retrieves an analysis by ID.
func (s *AnalysisService) FindAnalysisByID(ctx context.Context, id string) (*entrel.Analysis, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+analysisColumns+" FROM analyses WHERE id = ?", id)

	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, entrel.Errorf(entrel.ENOTFOUND, "analysis not found")
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindAnalyses retrieves analyses matching the filter, newest first.
func (s *AnalysisService) FindAnalyses(ctx context.Context, filter entrel.AnalysisFilter) ([]*entrel.Analysis, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + analysisColumns + " FROM analyses WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.SourceURL != nil {
		query.WriteString(" AND source_url = ?")
		args = append(args, *filter.SourceURL)
	}
	if filter.Entity != nil {
		query.WriteString(" AND id IN (SELECT analysis_id FROM entities WHERE name = ? COLLATE NOCASE)")
		args = append(args, *filter.Entity)
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*entrel.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	return analyses, rows.Err()
}

// DeleteAnalysis permanently removes an analysis and its indexed entities.
func (s *AnalysisService) DeleteAnalysis(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return entrel.Errorf(entrel.ENOTFOUND, "analysis not found")
	}

	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*entrel.Analysis, error) {
	var a entrel.Analysis
	var extraction, createdAt string

	if err := row.Scan(&a.ID, &a.SourceURL, &a.Provider, &a.Model, &extraction, &a.Tokens,
		&a.Truncated, &a.FetchError, &a.ContentHash, &createdAt); err != nil {
		return nil, err
	}

	x, err := entrel.ParseExtraction([]byte(extraction))
	if err != nil {
		return nil, fmt.Errorf("failed to decode extraction: %w", err)
	}
	a.Extraction = x

	if a.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return nil, err
	}

	return &a, nil
}
