package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shoplist-app/shoplist-api/internal/ports/out/productextractor"
)

type fakeGenerator struct {
	out    string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestParseProducts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "strings", raw: `{"products":["mleko","chleb"]}`, want: []string{"mleko", "chleb"}},
		{name: "objects", raw: `{"products":[{"name":"jajka"},{"name":""}]}`, want: []string{"jajka"}},
		{name: "fenced", raw: "```json\n{\"products\":[\"masło\"]}\n```", want: []string{"masło"}},
		{name: "empty", raw: `{"products":[]}`, want: []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseProducts(tc.raw)
			if err != nil {
				t.Fatalf("parseProducts() err=%v", err)
			}
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("parseProducts()=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseProducts_RejectsNonJSON(t *testing.T) {
	t.Parallel()

	if _, err := parseProducts("Here are your products: milk"); err == nil {
		t.Fatalf("parseProducts() err=nil, want error")
	}
	if _, err := parseProducts(`{"items":["milk"]}`); err == nil {
		t.Fatalf("parseProducts(no products field) err=nil, want error")
	}
}

func TestExtractor_WrapsFailuresAsUnavailable(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&fakeGenerator{err: errors.New("quota exceeded")})
	if _, err := e.ExtractProducts(context.Background(), "mleko"); !errors.Is(err, productextractor.ErrUnavailable) {
		t.Fatalf("ExtractProducts() err=%v, want ErrUnavailable", err)
	}

	e = NewExtractor(&fakeGenerator{out: "not json"})
	if _, err := e.ExtractProducts(context.Background(), "mleko"); !errors.Is(err, productextractor.ErrUnavailable) {
		t.Fatalf("ExtractProducts(bad output) err=%v, want ErrUnavailable", err)
	}
}

func TestExtractor_EmbedsTextInPrompt(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: `{"products":["mąka"]}`}
	got, err := NewExtractor(gen).ExtractProducts(context.Background(), "500 g mąki na ciasto")
	if err != nil {
		t.Fatalf("ExtractProducts() err=%v", err)
	}
	if len(got) != 1 || got[0] != "mąka" {
		t.Fatalf("ExtractProducts()=%v, want [mąka]", got)
	}
	if !strings.Contains(gen.prompt, "500 g mąki na ciasto") {
		t.Fatalf("prompt does not contain input text: %q", gen.prompt)
	}
}
