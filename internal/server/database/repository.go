package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrResultNotFound = errors.New("detection result not found")
)

// Repository provides insert and read operations for detection results.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Insert persists a new detection result. The database assigns the id and
// created_at, which are written back into result.
func (r *Repository) Insert(ctx context.Context, result *DetectionResult) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO detection_results (
			filename, file_path, file_size, mime_type,
			is_fake, confidence_score, processing_time,
			user_is_fake, model_version, analysis_details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`,
		result.Filename,
		result.FilePath,
		result.FileSize,
		result.MimeType,
		result.IsFake,
		result.ConfidenceScore,
		result.ProcessingTime,
		result.UserIsFake,
		result.ModelVersion,
		result.AnalysisDetails,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert detection result: %w", err)
	}
	return nil
}

// GetByID retrieves a detection result by its ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*DetectionResult, error) {
	result := &DetectionResult{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, filename, file_path, file_size, mime_type,
			   is_fake, confidence_score, processing_time,
			   user_is_fake, model_version, analysis_details, created_at
		FROM detection_results WHERE id = $1
	`, id).Scan(
		&result.ID,
		&result.Filename,
		&result.FilePath,
		&result.FileSize,
		&result.MimeType,
		&result.IsFake,
		&result.ConfidenceScore,
		&result.ProcessingTime,
		&result.UserIsFake,
		&result.ModelVersion,
		&result.AnalysisDetails,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get detection result: %w", err)
	}
	return result, nil
}

// List returns detection results ordered most-recent-first. Equal timestamps
// are tie-broken by id descending so pagination is deterministic.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*DetectionResult, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, filename, file_path, file_size, mime_type,
			   is_fake, confidence_score, processing_time,
			   user_is_fake, model_version, analysis_details, created_at
		FROM detection_results
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection results: %w", err)
	}
	defer rows.Close()

	var results []*DetectionResult
	for rows.Next() {
		result := &DetectionResult{}
		if err := rows.Scan(
			&result.ID,
			&result.Filename,
			&result.FilePath,
			&result.FileSize,
			&result.MimeType,
			&result.IsFake,
			&result.ConfidenceScore,
			&result.ProcessingTime,
			&result.UserIsFake,
			&result.ModelVersion,
			&result.AnalysisDetails,
			&result.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Count returns the total number of detection results.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM detection_results").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count detection results: %w", err)
	}
	return count, nil
}

// DailyCounts returns upload counts grouped by calendar date for the last
// days days. Dates with no uploads are absent from the result.
func (r *Repository) DailyCounts(ctx context.Context, days int) ([]DailyCount, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DATE(created_at) AS upload_date, COUNT(*) AS upload_count
		FROM detection_results
		WHERE created_at >= NOW() - ($1 * INTERVAL '1 day')
		GROUP BY DATE(created_at)
		ORDER BY upload_date
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
