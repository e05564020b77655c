package budget

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const (
	defaultEncoding      = "cl100k_base"
	defaultCharsPerToken = 4
)

// Estimator measures token counts for serialized context. It prefers a real
// tiktoken encoding and falls back to a chars-per-token heuristic when the
// encoding cannot be loaded (for example in offline environments).
type Estimator struct {
	tke           *tiktoken.Tiktoken
	charsPerToken int
}

// NewEstimator creates an estimator backed by the given tiktoken encoding.
// An empty name selects cl100k_base. Loading failure is not fatal: the
// estimator degrades to the heuristic and logs a warning.
func NewEstimator(encoding string, logger *zap.Logger) *Estimator {
	if encoding == "" {
		encoding = defaultEncoding
	}

	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("failed to load tiktoken encoding, using heuristic",
			zap.String("encoding", encoding),
			zap.Error(err))
		return &Estimator{charsPerToken: defaultCharsPerToken}
	}

	return &Estimator{tke: tke, charsPerToken: defaultCharsPerToken}
}

// NewHeuristicEstimator creates an estimator that only uses the
// chars-per-token ratio. Used in tests and when determinism across
// environments matters more than accuracy.
func NewHeuristicEstimator(charsPerToken int) *Estimator {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerToken
	}
	return &Estimator{charsPerToken: charsPerToken}
}

// Measure returns the token count of the given text.
func (e *Estimator) Measure(text string) int {
	if text == "" {
		return 0
	}

	if e.tke != nil {
		return len(e.tke.Encode(text, nil, nil))
	}

	tokens := len(text) / e.charsPerToken
	if tokens == 0 {
		// Minimum 1 token for non-empty input, prevents budget bypass on
		// tiny payloads.
		tokens = 1
	}
	return tokens
}
