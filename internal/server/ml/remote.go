package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// RemoteClassifier delegates classification to an external prediction service
// by resubmitting the stored file as a multipart upload.
type RemoteClassifier struct {
	baseURL string
	client  *http.Client
}

// NewRemoteClassifier creates a classifier that POSTs to baseURL/predict.
func NewRemoteClassifier(baseURL string, timeout time.Duration) *RemoteClassifier {
	return &RemoteClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// predictionResponse is the subset of the inference service's JSON response
// this system consumes.
type predictionResponse struct {
	Prediction struct {
		Label           string  `json:"label"`
		IsFake          bool    `json:"is_fake"`
		FakeProbability float64 `json:"fake_probability"`
		RealProbability float64 `json:"real_probability"`
		ModelVersion    string  `json:"model_version"`
	} `json:"prediction"`
}

// Classify uploads the file to the prediction endpoint and maps its response
// onto the verdict contract. Every failure mode (connection, status, payload)
// degrades instead of faulting.
func (r *RemoteClassifier) Classify(ctx context.Context, filePath string) Verdict {
	file, err := os.Open(filePath)
	if err != nil {
		return degraded("file not found: " + filePath)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return degraded("building request: " + err.Error())
	}
	if _, err := io.Copy(part, file); err != nil {
		return degraded("reading file: " + err.Error())
	}
	if err := writer.Close(); err != nil {
		return degraded("building request: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", &body)
	if err != nil {
		return degraded("building request: " + err.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return degraded("could not connect to inference service: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return degraded(fmt.Sprintf("unexpected status %d from inference service", resp.StatusCode))
	}

	var pr predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return degraded("malformed inference response: " + err.Error())
	}

	modelVersion := pr.Prediction.ModelVersion
	if modelVersion == "" {
		modelVersion = DefaultModelVersion
	}

	return Verdict{
		IsFake:     pr.Prediction.IsFake,
		Confidence: pr.Prediction.FakeProbability,
		Details: analysisDetails{
			ModelVersion:     modelVersion,
			AnalysisMethod:   "remote inference",
			FeaturesAnalyzed: []string{"texture_patterns", "compression_artifacts", "color_distribution"},
		}.encode(),
	}
}
