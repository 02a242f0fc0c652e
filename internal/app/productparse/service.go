package productparse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/productextractor"
)

const (
	MaxTextLength = 2000
	MaxProducts   = 50
)

// ErrExtractionFailed wraps extractor failures; the HTTP layer maps it to 502.
var ErrExtractionFailed = errors.New("product extraction failed")

// ListChecker confirms the caller owns the list before any text leaves the process.
type ListChecker interface {
	GetListByID(ctx context.Context, caller domain.UserID, listID domain.ListID) (domain.ShoppingList, error)
}

type Service struct {
	lists     ListChecker
	extractor productextractor.Extractor
}

func NewService(lists ListChecker, extractor productextractor.Extractor) *Service {
	return &Service{lists: lists, extractor: extractor}
}

// Parse returns candidate product names for a list. Access-layer errors are returned unchanged.
func (s *Service) Parse(ctx context.Context, caller domain.UserID, listID domain.ListID, text string) ([]string, error) {
	if _, err := s.lists.GetListByID(ctx, caller, listID); err != nil {
		return nil, err
	}
	raw, err := s.extractor.ExtractProducts(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return Normalize(raw), nil
}

// Normalize trims, truncates to the item name limit, drops empties and case-insensitive
// duplicates, and caps the result at MaxProducts. Order is preserved.
func Normalize(raw []string) []string {
	out := make([]string, 0, min(len(raw), MaxProducts))
	seen := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		name = truncate(domain.NormalizeTitle(name), domain.MaxItemNameLength)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
		if len(out) == MaxProducts {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
