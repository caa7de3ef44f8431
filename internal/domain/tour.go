package domain

import (
	"context"
	"math"
	"strings"
	"time"
)

// Tour is a guided tour users can apply to.
type Tour struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Images      []string  `json:"images"`
	GuideID     int64     `json:"guideId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SortOrder selects the ordering of a tour listing.
type SortOrder string

const (
	// SortByDate orders by start date, earliest first.
	SortByDate SortOrder = "date"
	// SortByName orders alphabetically by name.
	SortByName SortOrder = "name"
	// SortByNewest orders by creation time, newest first.
	SortByNewest SortOrder = "newest"
)

// ParseSortOrder returns the SortOrder named by s.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortByDate, SortByName, SortByNewest:
		return o, true
	}
	return "", false
}

// PageSizes are the page sizes a client may choose.
var PageSizes = []int{5, 10, 20, 50}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// TourPage is one page of a sorted tour listing.
type TourPage struct {
	Items      []Tour `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
	HasPrev    bool   `json:"hasPrev"`
	HasNext    bool   `json:"hasNext"`
}

// NewTourPage fills in the pagination metadata for items, which is page
// number page of a listing with total rows split into pageSize chunks.
func NewTourPage(items []Tour, page, pageSize, total int) TourPage {
	if items == nil {
		items = []Tour{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return TourPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: pages,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}

// PageOffset returns the number of rows preceding page. It saturates at
// math.MaxInt instead of overflowing for very large page numbers.
func PageOffset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// TourRepository is the port for tour persistence.
type TourRepository interface {
	GetTourPage(ctx context.Context, page, pageSize int, order SortOrder) (TourPage, error)
	GetTour(ctx context.Context, id int64) (*Tour, error)
	CreateTour(ctx context.Context, t *Tour) (int64, error)
	UpdateTour(ctx context.Context, id int64, name, description string) error
}

// RegistrationRepository records users applying to tours.
type RegistrationRepository interface {
	// RegisterForTour returns false if the user already applied.
	RegisterForTour(ctx context.Context, userID, tourID int64, at time.Time) (bool, error)
}
