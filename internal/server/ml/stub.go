package ml

import (
	"context"
	"math/rand/v2"
	"os"
	"sync"
)

// StubClassifier is the placeholder used when no inference endpoint is
// configured. It produces a randomized verdict that still satisfies the
// classifier contract's types and ranges.
type StubClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStubClassifier creates a stub with a non-deterministic seed.
func NewStubClassifier() *StubClassifier {
	return NewSeededStubClassifier(rand.Uint64())
}

// NewSeededStubClassifier creates a stub with a fixed seed, for reproducible
// verdicts in tests.
func NewSeededStubClassifier(seed uint64) *StubClassifier {
	return &StubClassifier{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Classify returns a random fake probability in [0.1, 0.9] mapped onto the
// verdict contract.
func (s *StubClassifier) Classify(_ context.Context, filePath string) Verdict {
	if _, err := os.Stat(filePath); err != nil {
		return degraded("file not found: " + filePath)
	}

	s.mu.Lock()
	fakeProb := 0.1 + s.rng.Float64()*0.8
	s.mu.Unlock()

	isFake := fakeProb > 0.5
	confidence := fakeProb
	if !isFake {
		confidence = 1.0 - fakeProb
	}

	return Verdict{
		IsFake:     isFake,
		Confidence: confidence,
		Details: analysisDetails{
			ModelVersion:     DefaultModelVersion,
			AnalysisMethod:   "stub detection",
			FeaturesAnalyzed: []string{"texture_patterns", "compression_artifacts", "color_distribution"},
			ProcessingNotes:  "placeholder verdict, no model configured",
		}.encode(),
	}
}
