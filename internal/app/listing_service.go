package app

import (
	"context"

	"go.uber.org/zap"

	"tourbook/internal/domain"
)

// Listing defaults used the first time a visitor's preferences are read.
const (
	DefaultPageSize  = 10
	DefaultSortOrder = domain.SortByDate
)

// Preferences is a page size and sort order pair.
type Preferences struct {
	PageSize  int              `json:"pageSize"`
	SortOrder domain.SortOrder `json:"sortOrder"`
}

// Validate checks p against the accepted page sizes and sort orders.
func (p Preferences) Validate() error {
	if !domain.ValidPageSize(p.PageSize) {
		return domain.Invalid("pageSize", "unsupported page size")
	}
	if _, ok := domain.ParseSortOrder(string(p.SortOrder)); !ok {
		return domain.Invalid("sortOrder", "unsupported sort order")
	}
	return nil
}

// Listing is a page of tours together with the preferences that produced it.
type Listing struct {
	domain.TourPage
	Preferences Preferences `json:"preferences"`
}

// ListingService serves the paginated, sortable tour listing.
type ListingService struct {
	tours domain.TourRepository
	prefs *PreferenceStore
	log   *zap.Logger
}

// NewListingService creates a ListingService.
func NewListingService(tours domain.TourRepository, prefs *PreferenceStore, log *zap.Logger) *ListingService {
	return &ListingService{tours: tours, prefs: prefs, log: log}
}

// RenderListing applies submitted (if any) to the visitor's preferences,
// resolves the effective page size and sort order and fetches page of the
// listing. Repository errors are returned unchanged.
func (s *ListingService) RenderListing(ctx context.Context, visitor string, page int, submitted *Preferences) (Listing, error) {
	if page < 1 {
		return Listing{}, domain.Invalid("page", "must be >= 1")
	}
	prefs := s.prefs.For(visitor)

	if submitted != nil {
		if err := submitted.Validate(); err != nil {
			return Listing{}, err
		}
		order, _ := domain.ParseSortOrder(string(submitted.SortOrder))
		prefs.Set(submitted.PageSize, order)
		s.log.Debug("listing preferences updated", zap.String("visitor", visitor),
			zap.Int("page_size", submitted.PageSize), zap.String("sort", string(order)))
	}

	eff := Preferences{
		PageSize:  prefs.PageSize(DefaultPageSize),
		SortOrder: prefs.SortOrder(DefaultSortOrder),
	}

	tp, err := s.tours.GetTourPage(ctx, page, eff.PageSize, eff.SortOrder)
	if err != nil {
		return Listing{}, err
	}
	return Listing{TourPage: tp, Preferences: eff}, nil
}
