package transaction_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/clock"
	"github.com/MrJamesThe3rd/till/internal/id"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/notify"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

var now = time.Date(2024, 3, 9, 14, 30, 15, 500_000_000, time.UTC)

func yen(s string) money.Money {
	return money.Of("JPY", decimal.RequireFromString(s))
}

func newService(repo transaction.Repository) *transaction.Service {
	return transaction.NewService(repo, notify.NewBroker(), clock.Fixed(now), &id.Sequence{Prefix: "tx"}, "JPY")
}

func TestService_Create(t *testing.T) {
	type args struct {
		drafts []transaction.ItemDraft
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantErr   error
	}

	widget := new("p-1")

	tests := []testCase{
		{
			name: "Success",
			args: args{drafts: []transaction.ItemDraft{
				{ProductID: widget, ProductName: "Widget", Quantity: 2, UnitPrice: yen("100"), DiscountAmount: yen("10")},
				{Quantity: 1, UnitPrice: yen("50"), DiscountAmount: yen("0")},
			}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateWithItems(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						for i := range tx.Items {
							tx.Items[i].ID = int64(i + 1)
						}
						return nil
					})
			},
		},
		{
			name:    "NoItems",
			args:    args{drafts: []transaction.ItemDraft{}},
			wantErr: transaction.ErrNoItems,
		},
		{
			name:    "NilItems",
			args:    args{},
			wantErr: apperr.ErrInvalidArgument,
		},
		{
			name: "UnitPriceTooLarge",
			args: args{drafts: []transaction.ItemDraft{{
				Quantity: 1, UnitPrice: yen("100000000000000"), DiscountAmount: yen("0"),
			}}},
			wantErr: money.ErrOutOfRange,
		},
		{
			name:    "ZeroQuantity",
			args:    args{drafts: []transaction.ItemDraft{{Quantity: 0, UnitPrice: yen("1"), DiscountAmount: yen("0")}}},
			wantErr: apperr.ErrInvalidArgument,
		},
		{
			name:    "DiscountAboveUnitPrice",
			args:    args{drafts: []transaction.ItemDraft{{Quantity: 1, UnitPrice: yen("1"), DiscountAmount: yen("2")}}},
			wantErr: apperr.ErrInvalidArgument,
		},
		{
			name:    "NegativePrice",
			args:    args{drafts: []transaction.ItemDraft{{Quantity: 1, UnitPrice: yen("-1"), DiscountAmount: yen("0")}}},
			wantErr: apperr.ErrInvalidArgument,
		},
		{
			name: "ForeignCurrency",
			args: args{drafts: []transaction.ItemDraft{{
				Quantity: 1, UnitPrice: money.Of("EUR", decimal.NewFromInt(1)), DiscountAmount: money.Zero("EUR"),
			}}},
			wantErr: apperr.ErrInvalidArgument,
		},
		{
			name: "RepoError",
			args: args{drafts: []transaction.ItemDraft{{Quantity: 1, UnitPrice: yen("1"), DiscountAmount: yen("0")}}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateWithItems(gomock.Any(), gomock.Any()).
					Return(apperr.ErrWriteFailed)
			},
			wantErr: apperr.ErrWriteFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := newService(repo)
			got, err := svc.Create(context.Background(), now, tt.args.drafts)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "tx-1", got.ID)
			assert.Equal(t, "JPY", got.Currency)
			assert.True(t, got.CreatedAt.Equal(now.Truncate(time.Second)))
			require.Len(t, got.Items, 2)
			assert.Equal(t, "tx-1", got.Items[0].TransactionID)
			assert.Equal(t, int64(1), got.Items[0].ID)
			assert.Equal(t, widget, got.Items[0].ProductID)
			assert.Nil(t, got.Items[1].ProductID)
			assert.True(t, got.TotalAmount().Equal(yen("230")))
			assert.Equal(t, 3, got.TotalQuantity())
		})
	}
}

func TestService_RecordUsesClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().CreateWithItems(gomock.Any(), gomock.Any()).Return(nil)

	got, err := newService(repo).Record(context.Background(), []transaction.ItemDraft{
		{Quantity: 1, UnitPrice: yen("5"), DiscountAmount: yen("0")},
	})
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), got.CreatedAt.Unix())
	assert.Zero(t, got.CreatedAt.Nanosecond())
}

func TestFilter_Query(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name    string
		filter  transaction.Filter
		want    transaction.Query
		wantErr bool
	}

	tests := []testCase{
		{name: "Empty", filter: transaction.Filter{}, want: transaction.AllQuery{}},
		{name: "BlankText", filter: transaction.Filter{Text: "   "}, want: transaction.AllQuery{}},
		{name: "Search", filter: transaction.Filter{Text: " widget "}, want: transaction.SearchQuery{Text: "widget"}},
		{
			name:   "Range",
			filter: transaction.Filter{Start: &day1, End: &day2},
			want:   transaction.DateRangeQuery{Start: day1, End: day2},
		},
		{
			name:   "StartOnly",
			filter: transaction.Filter{Start: &day2},
			want:   transaction.DateRangeQuery{Start: day2, End: transaction.RangeCeiling},
		},
		{
			name:   "EndOnly",
			filter: transaction.Filter{End: &day1},
			want:   transaction.DateRangeQuery{Start: transaction.RangeFloor, End: day1},
		},
		{
			name:   "RangeAndSearch",
			filter: transaction.Filter{Start: &day1, End: &day1, Text: "Widget"},
			want:   transaction.DateRangeSearchQuery{Start: day1, End: day1, Text: "Widget"},
		},
		{name: "Inverted", filter: transaction.Filter{Start: &day2, End: &day1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.Query()

			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_List(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	type args struct {
		filter transaction.Filter
		page   transaction.Page
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantLen   int
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{filter: transaction.Filter{Start: &day, End: &day}, page: transaction.PageAt(1, 10)},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					List(gomock.Any(), transaction.DateRangeQuery{Start: day, End: day}, transaction.PageAt(1, 10)).
					Return([]*transaction.Transaction{{ID: "a"}, {ID: "b"}}, nil)
			},
			wantLen: 2,
		},
		{
			name: "StorageError",
			args: args{filter: transaction.Filter{}, page: transaction.Unpaged},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					List(gomock.Any(), transaction.AllQuery{}, transaction.Unpaged).
					Return(nil, apperr.ErrStorageUnavailable)
			},
			wantErr: apperr.ErrStorageUnavailable,
		},
		{
			name:    "NegativePage",
			args:    args{filter: transaction.Filter{}, page: transaction.PageAt(-1, 10)},
			wantErr: apperr.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := newService(repo).List(context.Background(), tt.args.filter, tt.args.page)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_WatchRefreshesAfterWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var stored atomic.Int64

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		List(gomock.Any(), transaction.SearchQuery{Text: "widget"}, transaction.Unpaged).
		DoAndReturn(func(context.Context, transaction.Query, transaction.Page) ([]*transaction.Transaction, error) {
			return make([]*transaction.Transaction, stored.Load()), nil
		}).
		AnyTimes()
	repo.EXPECT().
		CreateWithItems(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *transaction.Transaction) error {
			stored.Add(1)
			return nil
		})

	svc := newService(repo)

	ctx, cancel := context.WithCancel(context.Background())

	ch, err := svc.Watch(ctx, transaction.Filter{Text: "widget"}, transaction.Unpaged)
	require.NoError(t, err)

	first := <-ch
	require.NoError(t, first.Err)
	assert.Empty(t, first.Value)

	_, err = svc.Record(context.Background(), []transaction.ItemDraft{
		{Quantity: 1, UnitPrice: yen("1"), DiscountAmount: yen("0")},
	})
	require.NoError(t, err)

	select {
	case s := <-ch:
		require.NoError(t, s.Err)
		assert.Len(t, s.Value, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}

	cancel()

	for range ch {
	}
}

func TestService_WatchRejectsInvalidFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := now
	end := now.Add(-time.Hour)

	_, err := newService(transaction.NewMockRepository(ctrl)).
		Watch(context.Background(), transaction.Filter{Start: &start, End: &end}, transaction.Unpaged)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestService_Mutations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().RemoveItem(gomock.Any(), int64(7)).Return(nil)
	repo.EXPECT().Delete(gomock.Any(), "tx-9").Return(errors.New("disk"))
	repo.EXPECT().DeleteAll(gomock.Any()).Return(nil)

	svc := newService(repo)

	assert.NoError(t, svc.RemoveItem(context.Background(), 7))
	assert.Error(t, svc.Delete(context.Background(), "tx-9"))
	assert.NoError(t, svc.DeleteAll(context.Background()))
}

func TestTransaction_Totals(t *testing.T) {
	tx := &transaction.Transaction{
		Currency: "JPY",
		Items: []transaction.Item{
			{Quantity: 2, UnitPrice: yen("100"), DiscountAmount: yen("10")},
			{Quantity: 1, UnitPrice: yen("50"), DiscountAmount: yen("0")},
		},
	}

	assert.True(t, tx.Items[0].DiscountedUnitPrice().Equal(yen("90")))
	assert.True(t, tx.Items[0].TotalPrice().Equal(yen("180")))
	assert.True(t, tx.TotalAmount().Equal(yen("230")))
	assert.True(t, tx.TotalDiscount().Equal(yen("20")))
	assert.Equal(t, 3, tx.TotalQuantity())

	empty := &transaction.Transaction{Currency: "JPY"}
	assert.True(t, empty.TotalAmount().IsZero())
	assert.Equal(t, "JPY", empty.TotalAmount().Currency())
}
