package database

import "time"

// DetectionResult is one analyzed upload as stored in the database.
// Rows are append-only: inserts and reads, never updates.
type DetectionResult struct {
	ID              int64
	Filename        string
	FilePath        string
	FileSize        int64
	MimeType        string
	IsFake          bool
	ConfidenceScore float64 // 0.0 to 1.0
	ProcessingTime  float64 // seconds
	UserIsFake      *bool   // nil when the uploader supplied no label
	ModelVersion    string
	AnalysisDetails string
	CreatedAt       time.Time
}

// DailyCount is the number of uploads recorded on one calendar date.
type DailyCount struct {
	Date  time.Time
	Count int64
}
