package productparse_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	memclock "github.com/shoplist-app/shoplist-api/internal/adapters/memory/clock"
	memlistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/memory/listrepo"
	"github.com/shoplist-app/shoplist-api/internal/adapters/textsplit"
	"github.com/shoplist-app/shoplist-api/internal/app/productparse"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/domain"
)

const listID = "00000000-0000-4000-8000-00000000000a"

type stubExtractor struct {
	names []string
	err   error
}

func (s stubExtractor) ExtractProducts(context.Context, string) ([]string, error) {
	return s.names, s.err
}

func newLists(t *testing.T) *shoppinglists.Service {
	t.Helper()
	lists := shoppinglists.NewService(memlistrepo.NewRepo(), memclock.NewManualClock(time.Unix(0, 0)))
	lists.SetIDGeneratorsForTest(func() domain.ListID { return listID }, nil)
	if _, err := lists.CreateList(context.Background(), "u1", "Dinner"); err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	return lists
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 200)
	got := productparse.Normalize([]string{" Milk ", "milk", "", "  ", "Bread", long})
	if len(got) != 3 || got[0] != "Milk" || got[1] != "Bread" {
		t.Fatalf("Normalize()=%q", got)
	}
	if n := len([]rune(got[2])); n != domain.MaxItemNameLength {
		t.Fatalf("truncated length=%d, want %d", n, domain.MaxItemNameLength)
	}

	many := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		many = append(many, "item "+strconv.Itoa(i))
	}
	if got := productparse.Normalize(many); len(got) != productparse.MaxProducts {
		t.Fatalf("len=%d, want %d", len(got), productparse.MaxProducts)
	}
}

func TestService_Parse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lists := newLists(t)

	svc := productparse.NewService(lists, textsplit.Extractor{})
	got, err := svc.Parse(ctx, "u1", listID, "2 eggs, milk\n- bread")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Parse()=%q, want 3 products", got)
	}

	_, err = svc.Parse(ctx, "intruder", listID, "milk")
	var se *shoppinglists.Error
	if !errors.As(err, &se) || se.Kind != shoppinglists.KindNotFound {
		t.Fatalf("Parse(intruder) err=%v, want NOT_FOUND", err)
	}

	failing := productparse.NewService(lists, stubExtractor{err: errors.New("quota exceeded")})
	if _, err := failing.Parse(ctx, "u1", listID, "milk"); !errors.Is(err, productparse.ErrExtractionFailed) {
		t.Fatalf("Parse(failing) err=%v, want ErrExtractionFailed", err)
	}
}
