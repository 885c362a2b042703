package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounts struct {
	medicines     int64
	lowStock      int64
	sales         decimal.Decimal
	prescriptions int64
	salesErr      error
	from, to      time.Time
}

func (s *stubCounts) CountActiveMedicines(context.Context) (int64, error) { return s.medicines, nil }
func (s *stubCounts) CountLowStock(context.Context) (int64, error) { return s.lowStock, nil }
func (s *stubCounts) SumTotalsBetween(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	s.from, s.to = from, to
	return s.sales, s.salesErr
}
func (s *stubCounts) CountCreatedBetween(context.Context, time.Time, time.Time) (int64, error) {
	return s.prescriptions, nil
}

func newStubService(t *testing.T, counts *stubCounts) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{Medicines: counts, Inventory: counts, Sales: counts, Prescriptions: counts})
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 7, 4, 15, 30, 0, 0, time.UTC) }
	return s
}

func TestStats(t *testing.T) {
	counts := &stubCounts{medicines: 5, lowStock: 2, sales: decimal.RequireFromString("42.10"), prescriptions: 3}
	svc := newStubService(t, counts)

	stats, err := svc.Stats(context.Background(), authz.Principal{AccountID: uuid.New(), Role: enums.RolePharmacist})
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalMedicines)
	assert.Equal(t, int64(2), stats.LowStockItems)
	assert.Equal(t, "42.1", stats.TodaysSales.String())
	assert.Equal(t, int64(3), stats.TodaysPrescriptions)
	assert.Equal(t, time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), counts.from)
	assert.Equal(t, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), counts.to)
}

func TestStatsErrors(t *testing.T) {
	counts := &stubCounts{salesErr: errors.New("db down")}
	svc := newStubService(t, counts)

	_, err := svc.Stats(context.Background(), authz.Principal{AccountID: uuid.New(), Role: enums.RoleAdmin})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	_, err = svc.Stats(context.Background(), authz.Principal{AccountID: uuid.New(), Role: enums.RoleCustomer})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
