package productextractor

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the extraction backend could not produce a result.
var ErrUnavailable = errors.New("product extraction unavailable")

// Extractor turns free text (a pasted recipe, a note) into candidate product names.
// Returned names are raw; callers normalize and cap them.
type Extractor interface {
	ExtractProducts(ctx context.Context, text string) ([]string, error)
}
