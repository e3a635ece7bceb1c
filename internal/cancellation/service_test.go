package cancellation

import (
	"context"
	"testing"
	"time"

	"worldtour/internal/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	policies      map[uuid.UUID]*CancellationPolicy
	cancellations []*Cancellation
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{policies: map[uuid.UUID]*CancellationPolicy{}}
}

func (m *memoryRepo) GetPolicyByItemID(_ context.Context, itemID uuid.UUID) (*CancellationPolicy, error) {
	p, ok := m.policies[itemID]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memoryRepo) UpsertPolicy(_ context.Context, policy *CancellationPolicy) error {
	copied := *policy
	m.policies[policy.CatalogItemID] = &copied
	return nil
}

func (m *memoryRepo) CreateCancellation(_ context.Context, c *Cancellation) error {
	m.cancellations = append(m.cancellations, c)
	return nil
}

func (m *memoryRepo) GetCancellationsByUserID(_ context.Context, userID uuid.UUID) ([]Cancellation, error) {
	var out []Cancellation
	for _, c := range m.cancellations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetCancellationByBookingID(_ context.Context, bookingID uuid.UUID) (*Cancellation, error) {
	for _, c := range m.cancellations {
		if c.BookingID == bookingID {
			return c, nil
		}
	}
	return nil, ErrCancellationNotFound
}

func TestQuote(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(72 * time.Hour)
	total := pricing.New(50000, "USD")

	tests := []struct {
		name         string
		policy       *CancellationPolicy
		start        *time.Time
		wantFee      int64
		wantRefund   int64
		withinPolicy bool
	}{
		{
			name:         "no policy is free",
			policy:       nil,
			start:        &start,
			wantFee:      0,
			wantRefund:   50000,
			withinPolicy: true,
		},
		{
			name:         "percentage fee",
			policy:       &CancellationPolicy{AllowCancellation: true, DeadlineHours: 24, FeeType: FeePercentage, FeeAmount: 15},
			start:        &start,
			wantFee:      7500,
			wantRefund:   42500,
			withinPolicy: true,
		},
		{
			name:         "fixed fee in major units",
			policy:       &CancellationPolicy{AllowCancellation: true, FeeType: FeeFixed, FeeAmount: 25},
			start:        &start,
			wantFee:      2500,
			wantRefund:   47500,
			withinPolicy: true,
		},
		{
			name:         "fixed fee capped at total",
			policy:       &CancellationPolicy{AllowCancellation: true, FeeType: FeeFixed, FeeAmount: 900},
			start:        &start,
			wantFee:      50000,
			wantRefund:   0,
			withinPolicy: true,
		},
		{
			name:         "past deadline forfeits",
			policy:       &CancellationPolicy{AllowCancellation: true, DeadlineHours: 96, FeeType: FeeNone},
			start:        &start,
			wantFee:      50000,
			wantRefund:   0,
			withinPolicy: false,
		},
		{
			name:         "cancellation not allowed forfeits",
			policy:       &CancellationPolicy{AllowCancellation: false, FeeType: FeeNone},
			start:        &start,
			wantFee:      50000,
			wantRefund:   0,
			withinPolicy: false,
		},
		{
			name:         "no start date ignores deadline",
			policy:       &CancellationPolicy{AllowCancellation: true, DeadlineHours: 10000, FeeType: FeeNone},
			start:        nil,
			wantFee:      0,
			wantRefund:   50000,
			withinPolicy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Quote(tt.policy, total, tt.start, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, got.Fee.Amount)
			assert.Equal(t, tt.wantRefund, got.Refund.Amount)
			assert.Equal(t, tt.withinPolicy, got.WithinPolicy)
			assert.Equal(t, total.Amount, got.Fee.Amount+got.Refund.Amount)
		})
	}
}

func TestQuote_ZeroDecimalCurrency(t *testing.T) {
	now := time.Now()
	got, err := Quote(&CancellationPolicy{AllowCancellation: true, FeeType: FeePercentage, FeeAmount: 10}, pricing.New(12345, "JPY"), nil, now)
	require.NoError(t, err)
	// refund is rounded half away from zero, the fee takes the remainder
	assert.Equal(t, int64(11111), got.Refund.Amount)
	assert.Equal(t, int64(1234), got.Fee.Amount)
}

func TestAssess_AdminOverridesDeadline(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	itemID := uuid.New()
	allow := true

	_, err := svc.UpsertPolicy(context.Background(), itemID, CancellationPolicyRequest{
		AllowCancellation: &allow,
		DeadlineHours:     48,
		FeeType:           FeePercentage,
		FeeAmount:         20,
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	start := now.Add(time.Hour)
	info := BookingInfo{ID: uuid.New(), UserID: uuid.New(), CatalogItemID: itemID, Total: pricing.New(10000, "EUR"), ServiceStart: &start}

	user, err := svc.Assess(context.Background(), info, false, now)
	require.NoError(t, err)
	assert.False(t, user.WithinPolicy)
	assert.Equal(t, int64(10000), user.Fee.Amount)

	admin, err := svc.Assess(context.Background(), info, true, now)
	require.NoError(t, err)
	assert.True(t, admin.WithinPolicy)
	assert.Equal(t, int64(2000), admin.Fee.Amount)
	assert.Equal(t, int64(8000), admin.Refund.Amount)
}

func TestRecord_StoresAmounts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	info := BookingInfo{ID: uuid.New(), UserID: uuid.New(), CatalogItemID: uuid.New(), Total: pricing.New(10000, "GBP")}
	assessment := Assessment{Fee: pricing.New(1000, "GBP"), Refund: pricing.New(9000, "GBP"), WithinPolicy: true}

	record, err := svc.Record(context.Background(), info, assessment, "plans changed", info.UserID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, record.Status)
	assert.Equal(t, int64(1000), record.CancellationFee)
	assert.Equal(t, int64(9000), record.RefundAmount)
	assert.Equal(t, "GBP", record.Currency)

	found, err := svc.GetCancellationByBooking(context.Background(), info.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
}

func TestUpsertPolicy_Validation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	allow := true

	_, err := svc.UpsertPolicy(context.Background(), uuid.New(), CancellationPolicyRequest{
		AllowCancellation: &allow,
		FeeType:           FeePercentage,
		FeeAmount:         120,
	})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = svc.UpsertPolicy(context.Background(), uuid.New(), CancellationPolicyRequest{
		AllowCancellation: &allow,
		FeeType:           FeeFixed,
	})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
