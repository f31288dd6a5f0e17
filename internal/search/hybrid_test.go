package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-request-queue/internal/model"
)

type stubCatalog struct {
	items []model.CatalogItem
	err   error
}

func (s stubCatalog) TopMatches(_ context.Context, _ string, limit int) ([]model.CatalogItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.items) > limit {
		return s.items[:limit], nil
	}
	return s.items, nil
}

type stubProvider struct {
	results []ExternalResult
	err     error
}

func (s stubProvider) Search(_ context.Context, _ string, limit int) ([]ExternalResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

func TestHybridDropsExternalDuplicatesOfCatalogHits(t *testing.T) {
	h := &Hybrid{
		Catalog: stubCatalog{items: []model.CatalogItem{
			{ID: 1, Title: "Bohemian Rhapsody", Artist: "Queen"},
		}},
		Provider: stubProvider{results: []ExternalResult{
			{ExternalID: "yt-1", Title: "bohemian rhapsody", Artist: "QUEEN"},
			{ExternalID: "yt-2", Title: "Radio Ga Ga", Artist: "Queen"},
		}},
	}

	res, err := h.Search(context.Background(), "queen")
	require.NoError(t, err)
	assert.True(t, res.ProviderAvailable)
	require.Len(t, res.Catalog, 1)
	require.Len(t, res.External, 1)
	assert.Equal(t, "yt-2", res.External[0].ExternalID)
}

func TestHybridDegradesWhenProviderFails(t *testing.T) {
	h := &Hybrid{
		Catalog:  stubCatalog{items: []model.CatalogItem{{ID: 1, Title: "Song", Artist: "Artist"}}},
		Provider: stubProvider{err: ErrProviderUnavailable},
	}

	res, err := h.Search(context.Background(), "song")
	require.NoError(t, err, "a dead provider must not fail the search")
	assert.False(t, res.ProviderAvailable)
	assert.Len(t, res.Catalog, 1)
	assert.Empty(t, res.External)
}

func TestHybridWithoutProviderOrCatalog(t *testing.T) {
	res, err := (&Hybrid{}).Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, res.ProviderAvailable)
	assert.Empty(t, res.Catalog)
	assert.Empty(t, res.External)
}

func TestHybridPropagatesCatalogErrors(t *testing.T) {
	boom := errors.New("connection reset")
	h := &Hybrid{Catalog: stubCatalog{err: boom}}
	_, err := h.Search(context.Background(), "song")
	assert.ErrorIs(t, err, boom)
}
