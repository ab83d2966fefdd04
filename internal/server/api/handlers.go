package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"deepspear/internal/server/database"
	"deepspear/internal/server/service"

	"github.com/labstack/echo/v4"
)

const (
	serviceName    = "DeepSpear AI Detection API"
	serviceVersion = "1.0.0"

	defaultHistoryLimit = 10
)

// Handler contains the HTTP handlers for the detection API.
type Handler struct {
	svc *service.DetectionService
	db  *database.DB
}

// NewHandler creates a new handler with the given service dependency.
func NewHandler(svc *service.DetectionService, db *database.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

// HandleRoot handles GET /.
func (h *Handler) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Welcome to DeepSpear AI - fake content detection API",
		"version": serviceVersion,
	})
}

// HandleDetect handles POST /detect.
// Accepts a multipart form with a "file" field and optional "user_label"
// field, runs the detection pipeline, and returns the recorded outcome.
func (h *Handler) HandleDetect(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"detail": "no file provided",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"detail": "failed to read uploaded file",
		})
	}
	defer src.Close()

	// Presence of the field decides null vs false for the stored label, so
	// FormValue (which cannot distinguish) is not enough here.
	var userLabel *string
	if form, ferr := c.MultipartForm(); ferr == nil {
		if vals, ok := form.Value["user_label"]; ok && len(vals) > 0 {
			userLabel = &vals[0]
		}
	}

	candidate := service.UploadCandidate{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	record, err := h.svc.Detect(c.Request().Context(), candidate, src, userLabel)
	if err != nil {
		return mapServiceError(c, err)
	}

	// Deferred best-effort cleanup once the response has been written.
	// Disabled by default: stored files are retained.
	if h.svc.CleanupAfterDetect() {
		path := record.FilePath
		c.Response().After(func() {
			go h.svc.CleanupStored(path)
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"file_id":         record.ID,
		"filename":        record.Filename,
		"is_fake":         record.IsFake,
		"confidence":      record.ConfidenceScore,
		"processing_time": round3(record.ProcessingTime),
		"created_at":      record.CreatedAt,
		"message":         fmt.Sprintf("image analyzed with %.1f%% confidence", record.ConfidenceScore*100),
	})
}

// HandleHistory handles GET /history?limit=&offset=.
func (h *Handler) HandleHistory(c echo.Context) error {
	limit := queryInt(c, "limit", defaultHistoryLimit)
	offset := queryInt(c, "offset", 0)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := h.svc.History(c.Request().Context(), limit, offset)
	if err != nil {
		return mapServiceError(c, err)
	}
	if entries == nil {
		entries = []service.HistoryEntry{}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": entries,
		"total":   total,
	})
}

// HandleResult handles GET /result/:id.
// Returns the full detection record.
func (h *Handler) HandleResult(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"detail": "detection result not found",
		})
	}

	record, err := h.svc.Result(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":               record.ID,
		"filename":         record.Filename,
		"file_path":        record.FilePath,
		"file_size":        record.FileSize,
		"mime_type":        record.MimeType,
		"is_fake":          record.IsFake,
		"confidence":       record.ConfidenceScore,
		"processing_time":  round3(record.ProcessingTime),
		"user_is_fake":     record.UserIsFake,
		"model_version":    record.ModelVersion,
		"analysis_details": record.AnalysisDetails,
		"created_at":       record.CreatedAt,
	})
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// HandleHealthDB handles GET /health/db.
func (h *Handler) HandleHealthDB(c echo.Context) error {
	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"database": "connected",
	})
}

// mapServiceError translates service-layer errors into HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": verr.Reason})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "detection result not found"})
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "error processing image"})
	}
}

func queryInt(c echo.Context, name string, fallback int) int {
	val := c.QueryParam(name)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
