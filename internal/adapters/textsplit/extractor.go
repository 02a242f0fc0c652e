package textsplit

import (
	"context"
	"regexp"
	"strings"

	"github.com/shoplist-app/shoplist-api/internal/ports/out/productextractor"
)

// Extractor splits text on line breaks, commas and semicolons. It is used when no LLM
// is configured.
type Extractor struct{}

var _ productextractor.Extractor = Extractor{}

var (
	separators = regexp.MustCompile(`[\n\r,;]+`)
	// Leading list markers and quantities, e.g. "- ", "1.", "2x", "500 g".
	leadingNoise = regexp.MustCompile(`^(?:[-*•]+\s*|\d+[.)]\s*)?(?:\d+(?:[.,]\d+)?\s*(?:x|szt\.?|kg|g|ml|l)?\s+)?`)
)

func (Extractor) ExtractProducts(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts := separators.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimSpace(leadingNoise.ReplaceAllString(p, ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
