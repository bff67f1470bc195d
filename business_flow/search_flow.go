package businessflow

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
)

// SearchFlow answers public catalog searches
type SearchFlow interface {
	SearchListings(ctx context.Context, req *dto.SearchListingsRequest) (*dto.SearchListingsResponse, error)
}

// SearchFlowImpl scans every approved listing, filters, sorts and slices in memory.
// Each call reads the store, so a listing that stops being approved disappears at once.
type SearchFlowImpl struct {
	carRepo repository.CarRepository
	cfg     config.SearchConfig
	logger  *zap.Logger
}

func NewSearchFlow(carRepo repository.CarRepository, cfg config.SearchConfig, logger *zap.Logger) SearchFlow {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = utils.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = utils.MaxPageSize
	}
	return &SearchFlowImpl{carRepo: carRepo, cfg: cfg, logger: loggerOrNop(logger)}
}

func (f *SearchFlowImpl) SearchListings(ctx context.Context, req *dto.SearchListingsRequest) (*dto.SearchListingsResponse, error) {
	start := time.Now()
	defer func() { listingSearchDuration.Observe(time.Since(start).Seconds()) }()

	if req.Offset < 0 || req.Limit < 0 {
		return nil, NewBusinessError("INVALID_SEARCH", "Offset and limit must not be negative",
			&ValidationError{Err: ErrInvalidPage, Fields: map[string]string{"offset": "must be >= 0", "limit": "must be >= 0"}})
	}
	limit := req.Limit
	if limit == 0 {
		limit = f.cfg.DefaultPageSize
	}
	if limit > f.cfg.MaxPageSize {
		limit = f.cfg.MaxPageSize
	}

	cars, err := f.carRepo.ListApproved(ctx)
	if err != nil {
		return nil, NewBusinessError("SEARCH_LISTINGS_FAILED", "Failed to load listings", err)
	}

	q := newSearchQuery(req)
	result := q.run(cars, req.Offset, limit)

	items := make([]dto.ListingDTO, 0, len(result.page))
	for _, c := range result.page {
		items = append(items, ToListingDTO(*c))
	}

	f.logger.Debug("listing search",
		zap.Int("candidates", len(cars)),
		zap.Int("total", result.total),
		zap.Duration("took", time.Since(start)),
	)

	return &dto.SearchListingsResponse{
		Items:      items,
		Total:      result.total,
		Offset:     req.Offset,
		Limit:      limit,
		PriceRange: dto.RangeDTO{Min: result.price.min, Max: result.price.max},
		KmRange:    dto.RangeDTO{Min: result.km.min, Max: result.km.max},
	}, nil
}

type bounds struct {
	min, max int64
}

// searchQuery is a normalized predicate set. Every predicate is ANDed.
type searchQuery struct {
	brands           []string
	model            string
	year             *int
	registrationYear *int
	priceMin         *int64
	priceMax         *int64
	kmMin            *int64
	kmMax            *int64
	color            string
	freeText         string
	sort             string
}

type searchResult struct {
	page  []*models.Car
	total int
	price bounds
	km    bounds
}

func newSearchQuery(req *dto.SearchListingsRequest) searchQuery {
	q := searchQuery{
		year:             req.Year,
		registrationYear: req.RegistrationYear,
		priceMin:         req.PriceMin,
		priceMax:         req.PriceMax,
		kmMin:            req.KmMin,
		kmMax:            req.KmMax,
		sort:             req.Sort,
	}
	for _, b := range req.Brands {
		if b = strings.TrimSpace(b); b != "" && !slices.ContainsFunc(q.brands, func(s string) bool { return strings.EqualFold(s, b) }) {
			q.brands = append(q.brands, b)
		}
	}
	// a model only narrows the search when exactly one brand is selected
	if len(q.brands) == 1 {
		q.model = strings.TrimSpace(utils.Deref(req.Model))
	}
	q.color = strings.ToLower(strings.TrimSpace(utils.Deref(req.Color)))
	q.freeText = strings.ToLower(strings.TrimSpace(utils.Deref(req.FreeText)))
	if q.sort == "" {
		q.sort = dto.SearchSortNewest
	}
	return q
}

func (q searchQuery) run(cars []*models.Car, offset, limit int) searchResult {
	var res searchResult

	approved := make([]*models.Car, 0, len(cars))
	for _, c := range cars {
		if c.IsVisible() {
			approved = append(approved, c)
		}
	}
	res.price, res.km = catalogBounds(approved)

	// untouched range bounds fall back to the catalog-wide bounds
	priceMin, priceMax := rangeOr(q.priceMin, q.priceMax, res.price)
	kmMin, kmMax := rangeOr(q.kmMin, q.kmMax, res.km)

	matched := make([]*models.Car, 0, len(approved))
	for _, c := range approved {
		if len(q.brands) > 0 && !slices.ContainsFunc(q.brands, func(b string) bool { return strings.EqualFold(b, c.Brand) }) {
			continue
		}
		if q.model != "" && !strings.EqualFold(q.model, c.Model) {
			continue
		}
		if q.year != nil && c.Year != *q.year {
			continue
		}
		if q.registrationYear != nil && (c.RegistrationYear == nil || *c.RegistrationYear != *q.registrationYear) {
			continue
		}
		if c.Price < priceMin || c.Price > priceMax {
			continue
		}
		if c.KmRun < kmMin || c.KmRun > kmMax {
			continue
		}
		if q.color != "" && !strings.Contains(strings.ToLower(c.Color), q.color) {
			continue
		}
		if q.freeText != "" && !strings.Contains(strings.ToLower(c.SearchText()), q.freeText) {
			continue
		}
		matched = append(matched, c)
	}

	slices.SortStableFunc(matched, q.compare)

	res.total = len(matched)
	if offset >= len(matched) {
		res.page = []*models.Car{}
		return res
	}
	end := min(offset+limit, len(matched))
	res.page = matched[offset:end]
	return res
}

// compare orders by the requested key, then newest first, then by id descending
func (q searchQuery) compare(a, b *models.Car) int {
	var c int
	switch q.sort {
	case dto.SearchSortOldest:
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	case dto.SearchSortPriceAsc:
		c = cmp.Compare(a.Price, b.Price)
	case dto.SearchSortPriceDesc:
		c = cmp.Compare(b.Price, a.Price)
	case dto.SearchSortKmAsc:
		c = cmp.Compare(a.KmRun, b.KmRun)
	}
	return cmp.Or(c, b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
}

func catalogBounds(cars []*models.Car) (price, km bounds) {
	for i, c := range cars {
		if i == 0 {
			price = bounds{c.Price, c.Price}
			km = bounds{c.KmRun, c.KmRun}
			continue
		}
		price.min = min(price.min, c.Price)
		price.max = max(price.max, c.Price)
		km.min = min(km.min, c.KmRun)
		km.max = max(km.max, c.KmRun)
	}
	return price, km
}

func rangeOr(lo, hi *int64, def bounds) (int64, int64) {
	from, to := def.min, def.max
	if lo != nil {
		from = *lo
	}
	if hi != nil {
		to = *hi
	}
	return from, to
}
