// Package provider defines the translation capability the sync engine
// depends on, plus the adapters wrapkit ships: an OpenAI-compatible HTTP
// client and a pseudo-localizer for layout testing.
package provider

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrProvider marks a failed translation request.
var ErrProvider = errors.New("provider failure")

// Request asks for one string to be translated. Context carries the catalog
// key so the provider can disambiguate short strings.
type Request struct {
	SourceText   string
	SourceLocale string
	TargetLocale string
	Context      string
}

// Result is the outcome of one Request.
type Result struct {
	TranslatedText string
	Success        bool
	Err            error
}

// Provider translates text. TranslateBatch must return exactly one result per
// request, in request order. A non-nil error from TranslateBatch means the
// whole batch failed.
type Provider interface {
	Translate(ctx context.Context, req Request) Result
	TranslateBatch(ctx context.Context, reqs []Request) ([]Result, error)
}

// Succeeded builds a successful result.
func Succeeded(text string) Result {
	return Result{TranslatedText: text, Success: true}
}

// Failed builds a failed result marked with ErrProvider.
func Failed(err error) Result {
	if err == nil {
		err = errors.New("translation failed")
	}
	return Result{Err: errors.Mark(err, ErrProvider)}
}

// Func adapts a per-string translation function into a Provider. Batches are
// translated one request at a time.
type Func func(ctx context.Context, req Request) (string, error)

// Translate implements Provider.
func (f Func) Translate(ctx context.Context, req Request) Result {
	text, err := f(ctx, req)
	if err != nil {
		return Failed(err)
	}
	return Succeeded(text)
}

// TranslateBatch implements Provider.
func (f Func) TranslateBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	out := make([]Result, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "batch cancelled")
		}
		out[i] = f.Translate(ctx, req)
	}
	return out, nil
}
