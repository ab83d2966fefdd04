package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"deepspear/internal/server/config"
	"deepspear/internal/server/database"
	"deepspear/internal/server/ml"
	"deepspear/internal/server/storage"

	"github.com/dustin/go-humanize"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound = errors.New("detection result not found")
)

// UploadCandidate carries the declared metadata of an incoming upload through
// validation and storage.
type UploadCandidate struct {
	Filename    string
	Size        int64
	ContentType string
}

// HistoryEntry is the summary form of a detection result returned by History.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	IsFake     bool      `json:"is_fake"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordStore is the persistence surface the detection service needs.
// *database.Repository satisfies it; tests substitute an in-memory store.
type RecordStore interface {
	Insert(ctx context.Context, result *database.DetectionResult) error
	GetByID(ctx context.Context, id int64) (*database.DetectionResult, error)
	List(ctx context.Context, limit, offset int) ([]*database.DetectionResult, error)
	Count(ctx context.Context) (int64, error)
}

// DetectionService runs the intake pipeline (validate, store, classify,
// record) and serves the read paths over recorded results.
type DetectionService struct {
	records     RecordStore
	files       storage.Store
	classifier  ml.Classifier
	cfg         *config.Config
	allowedExts map[string]bool
}

// NewDetectionService creates a detection service. The classifier is injected
// here so tests can substitute a deterministic fake.
func NewDetectionService(records RecordStore, files storage.Store, classifier ml.Classifier, cfg *config.Config) *DetectionService {
	exts := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = true
	}
	return &DetectionService{
		records:     records,
		files:       files,
		classifier:  classifier,
		cfg:         cfg,
		allowedExts: exts,
	}
}

// Detect runs one upload through the full pipeline and returns the persisted
// record. userLabel is nil when the caller supplied no label.
func (s *DetectionService) Detect(ctx context.Context, candidate UploadCandidate, data io.Reader, userLabel *string) (*database.DetectionResult, error) {
	if verr := validateUpload(candidate, s.cfg.MaxUploadSize, s.allowedExts); verr != nil {
		return nil, verr
	}

	start := time.Now()

	stored, err := s.files.Save(data, candidate.Filename, candidate.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	slog.Info("upload stored",
		"id", stored.ID,
		"path", stored.Path,
		"size", humanize.Bytes(uint64(stored.Size)),
	)

	verdict := s.classifier.Classify(ctx, stored.Path)

	size := candidate.Size
	if size <= 0 {
		size = stored.Size
	}
	mimeType := candidate.ContentType
	if mimeType == "" {
		mimeType = "unknown"
	}

	record := &database.DetectionResult{
		Filename:        resolveDisplayName(candidate.Filename, stored.Extension, start),
		FilePath:        stored.Path,
		FileSize:        size,
		MimeType:        mimeType,
		IsFake:          verdict.IsFake,
		ConfidenceScore: verdict.Confidence,
		ProcessingTime:  time.Since(start).Seconds(),
		UserIsFake:      parseUserLabel(userLabel),
		ModelVersion:    ml.ModelVersionFromDetails(verdict.Details),
		AnalysisDetails: verdict.Details,
	}

	if err := s.records.Insert(ctx, record); err != nil {
		s.CleanupStored(stored.Path)
		return nil, fmt.Errorf("failed to record detection result: %w", err)
	}

	slog.Info("detection recorded",
		"id", record.ID,
		"filename", record.Filename,
		"is_fake", record.IsFake,
		"confidence", record.ConfidenceScore,
		"model_version", record.ModelVersion,
	)

	return record, nil
}

// CleanupAfterDetect reports whether stored files should be removed once the
// response has been sent. Disabled by default: uploads are retained.
func (s *DetectionService) CleanupAfterDetect() bool {
	return s.cfg.CleanupAfterDetect
}

// CleanupStored removes a stored file, best-effort. Failures are logged and
// never retried; callers must not depend on it for correctness.
func (s *DetectionService) CleanupStored(path string) {
	if s.files.Delete(path) {
		slog.Info("stored file cleaned up", "path", path)
	}
}

// History returns up to limit summaries starting at offset, most recent
// first, along with the total row count.
func (s *DetectionService) History(ctx context.Context, limit, offset int) ([]HistoryEntry, int64, error) {
	results, err := s.records.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.records.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]HistoryEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, HistoryEntry{
			ID:         r.ID,
			Filename:   r.Filename,
			IsFake:     r.IsFake,
			Confidence: r.ConfidenceScore,
			CreatedAt:  r.CreatedAt,
		})
	}
	return entries, total, nil
}

// Result returns the full record for one detection.
func (s *DetectionService) Result(ctx context.Context, id int64) (*database.DetectionResult, error) {
	result, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrResultNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result, nil
}

// resolveDisplayName returns the declared filename, or a generated fallback
// when the client sent nothing useful (mobile browsers commonly declare
// "blob" or "image").
func resolveDisplayName(declared, ext string, now time.Time) string {
	if isPlaceholderName(declared) {
		return fmt.Sprintf("uploaded_image_%s.%s", now.Format("20060102_150405"), ext)
	}
	return declared
}

// parseUserLabel maps the optional free-text label onto the tri-state
// user_is_fake field: absent stays nil, "fake" (case-insensitive) is true,
// anything else is false.
func parseUserLabel(label *string) *bool {
	if label == nil {
		return nil
	}
	isFake := strings.EqualFold(strings.TrimSpace(*label), "fake")
	return &isFake
}
