package ml

import (
	"context"
	"encoding/json"
)

// DefaultModelVersion tags records when the details payload carries no tag of
// its own.
const DefaultModelVersion = "v1.0"

// Verdict is the outcome of classifying one stored image.
type Verdict struct {
	IsFake     bool
	Confidence float64 // 0.0 to 1.0
	Details    string  // JSON-encoded analysis metadata
}

// Classifier produces a fake/real verdict for a stored file. Implementations
// never fail: any internal error degrades to a well-formed low-confidence
// negative verdict so the intake pipeline always receives a usable outcome.
type Classifier interface {
	Classify(ctx context.Context, filePath string) Verdict
}

// analysisDetails is the serialization contract for inference metadata held in
// a record's analysis_details column.
type analysisDetails struct {
	ModelVersion     string   `json:"model_version"`
	AnalysisMethod   string   `json:"analysis_method"`
	FeaturesAnalyzed []string `json:"features_analyzed,omitempty"`
	ProcessingNotes  string   `json:"processing_notes,omitempty"`
}

func (d analysisDetails) encode() string {
	b, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(b)
}

// ModelVersionFromDetails extracts the model_version tag from a details
// payload. Anything that is not valid JSON carrying a tag falls back to
// DefaultModelVersion.
func ModelVersionFromDetails(details string) string {
	var d analysisDetails
	if err := json.Unmarshal([]byte(details), &d); err != nil || d.ModelVersion == "" {
		return DefaultModelVersion
	}
	return d.ModelVersion
}

// degraded builds the substitute verdict used whenever classification itself
// fails.
func degraded(reason string) Verdict {
	return Verdict{
		IsFake:     false,
		Confidence: 0.0,
		Details:    "error during prediction: " + reason,
	}
}
