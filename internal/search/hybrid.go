package search

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/live-request-queue/internal/model"
)

// Result caps for the two halves of a hybrid search.
const (
	maxCatalogResults  = 3
	maxExternalResults = 5
)

// CatalogSource is the slice of the catalog the hybrid search needs:
// popularity-ranked matches for a query.
type CatalogSource interface {
	TopMatches(ctx context.Context, query string, limit int) ([]model.CatalogItem, error)
}

// Result is the merged outcome of a hybrid search.  ProviderAvailable is
// false when the external provider was unreachable or unconfigured and
// the results are catalog-only.
type Result struct {
	Catalog           []model.CatalogItem `json:"catalog"`
	External          []ExternalResult    `json:"external"`
	ProviderAvailable bool                `json:"provider_available"`
}

// Hybrid merges catalog matches with external provider results.  Catalog
// entries win: any external hit whose normalized title+artist collides
// with a returned catalog entry is dropped.  Provider failures degrade to
// catalog-only results instead of failing the search.
type Hybrid struct {
	Catalog  CatalogSource // nil for modules without a catalog
	Provider Provider      // nil when unconfigured
}

// Search runs the hybrid lookup for a query.
func (h *Hybrid) Search(ctx context.Context, query string) (*Result, error) {
	res := &Result{Catalog: []model.CatalogItem{}, External: []ExternalResult{}}

	if h.Catalog != nil {
		items, err := h.Catalog.TopMatches(ctx, query, maxCatalogResults)
		if err != nil {
			return nil, err
		}
		res.Catalog = items
	}

	if h.Provider == nil {
		return res, nil
	}

	external, err := h.Provider.Search(ctx, query, maxExternalResults)
	if err != nil {
		if !errors.Is(err, ErrProviderUnavailable) {
			log.Printf("search: provider error, degrading to catalog only: %v", err)
		}
		return res, nil
	}
	res.ProviderAvailable = true

	seen := make(map[string]bool, len(res.Catalog))
	for _, it := range res.Catalog {
		seen[Key(it.Title, it.Artist)] = true
	}
	for _, ext := range external {
		if seen[Key(ext.Title, ext.Artist)] {
			continue
		}
		res.External = append(res.External, ext)
	}
	return res, nil
}
