// Package catalog is the read model over products, add-ons and stock
// counts. Ranking mirrors the storefront rules: occasion-tag matches come
// first, then textual relevance, with price as the ascending tie-break.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	storex "github.com/tanpawarit/cesto-mcp-server/server/store"
)

const (
	defaultLimit = 5

	descriptionHitWeight = 20
	nameHitWeight        = 15
)

type Index struct {
	store        storex.Store
	defaultLimit int
}

type Option func(*Index)

func WithDefaultLimit(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.defaultLimit = n
		}
	}
}

func New(store storex.Store, opts ...Option) (*Index, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	idx := &Index{store: store, defaultLimit: defaultLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(idx)
		}
	}
	return idx, nil
}

// Search returns a fresh, independent result slice on every call. The same
// query with no intervening catalog change yields the same ranking.
func (idx *Index) Search(ctx context.Context, q contractx.CatalogQuery) ([]contractx.Product, error) {
	products, err := idx.store.Products(ctx, storex.ProductFilter{MinPrice: q.MinPrice, MaxPrice: q.MaxPrice})
	if err != nil {
		return nil, err
	}

	tag := strings.TrimSpace(q.OccasionTag)
	text := strings.ToLower(strings.TrimSpace(q.Query))

	type ranked struct {
		product  contractx.Product
		tagMatch bool
		score    int
	}
	results := make([]ranked, 0, len(products))
	for _, p := range products {
		r := ranked{product: p}
		if tag != "" {
			r.tagMatch = p.HasOccasion(tag)
		}
		if text != "" {
			if strings.Contains(strings.ToLower(p.Description), text) {
				r.score += descriptionHitWeight
			}
			if strings.Contains(strings.ToLower(p.Name), text) {
				r.score += nameHitWeight
			}
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.tagMatch != b.tagMatch {
			return a.tagMatch
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.product.Price != b.product.Price {
			return a.product.Price < b.product.Price
		}
		return a.product.ID < b.product.ID
	})

	limit := q.Limit
	if limit <= 0 {
		limit = idx.defaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]contractx.Product, 0, len(results))
	for _, r := range results {
		out = append(out, r.product)
	}
	return out, nil
}

func (idx *Index) StockOf(ctx context.Context, productID string) (int64, error) {
	return idx.store.StockOf(ctx, strings.TrimSpace(productID))
}

func (idx *Index) Addons(ctx context.Context) ([]contractx.Addon, error) {
	return idx.store.Addons(ctx)
}
