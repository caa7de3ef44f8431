package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tourbook/internal/domain"
)

type pageCall struct {
	page, pageSize int
	order          domain.SortOrder
}

func recordingTours(calls *[]pageCall) *mockTourRepo {
	return &mockTourRepo{
		getPageFn: func(ctx context.Context, page, pageSize int, order domain.SortOrder) (domain.TourPage, error) {
			*calls = append(*calls, pageCall{page, pageSize, order})
			return domain.NewTourPage([]domain.Tour{{ID: 1, Name: "Ridge walk"}}, page, pageSize, 42), nil
		},
	}
}

func TestRenderListing_Defaults(t *testing.T) {
	var calls []pageCall
	svc := NewListingService(recordingTours(&calls), NewPreferenceStore(), zap.NewNop())

	l, err := svc.RenderListing(context.Background(), "v1", 2, nil)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, pageCall{2, DefaultPageSize, DefaultSortOrder}, calls[0])
	assert.Equal(t, Preferences{PageSize: 10, SortOrder: domain.SortByDate}, l.Preferences)
	assert.Equal(t, 5, l.TotalPages)
	assert.True(t, l.HasPrev)
	assert.True(t, l.HasNext)
	assert.Len(t, l.Items, 1)
}

func TestRenderListing_SubmittedPreferencesPersist(t *testing.T) {
	var calls []pageCall
	svc := NewListingService(recordingTours(&calls), NewPreferenceStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.RenderListing(ctx, "v1", 1, &Preferences{PageSize: 5, SortOrder: "Name"})
	require.NoError(t, err)
	_, err = svc.RenderListing(ctx, "v1", 3, nil)
	require.NoError(t, err)
	_, err = svc.RenderListing(ctx, "v2", 1, nil)
	require.NoError(t, err)

	assert.Equal(t, []pageCall{
		{1, 5, domain.SortByName},
		{3, 5, domain.SortByName},
		{1, 10, domain.SortByDate},
	}, calls)
}

func TestRenderListing_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		submitted *Preferences
		field     string
	}{
		{"page zero", 0, nil, "page"},
		{"page size", 1, &Preferences{PageSize: 7, SortOrder: domain.SortByDate}, "pageSize"},
		{"sort order", 1, &Preferences{PageSize: 10, SortOrder: "price"}, "sortOrder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []pageCall
			prefs := NewPreferenceStore()
			svc := NewListingService(recordingTours(&calls), prefs, zap.NewNop())

			_, err := svc.RenderListing(context.Background(), "v", tt.page, tt.submitted)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, calls)
			assert.Equal(t, 20, prefs.For("v").PageSize(20))
		})
	}
}

func TestRenderListing_RepositoryErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	tours := &mockTourRepo{
		getPageFn: func(ctx context.Context, page, pageSize int, order domain.SortOrder) (domain.TourPage, error) {
			return domain.TourPage{}, boom
		},
	}
	svc := NewListingService(tours, NewPreferenceStore(), zap.NewNop())

	_, err := svc.RenderListing(context.Background(), "v", 1, nil)
	assert.Same(t, boom, err)
}
