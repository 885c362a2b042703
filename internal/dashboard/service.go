package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Stats is the staff dashboard summary.
type Stats struct {
	TotalMedicines      int64           `json:"totalMedicines"`
	LowStockItems       int64           `json:"lowStockItems"`
	TodaysSales         decimal.Decimal `json:"todaysSales"`
	TodaysPrescriptions int64           `json:"todaysPrescriptions"`
}

type medicineCounter interface {
	CountActiveMedicines(ctx context.Context) (int64, error)
}

type lowStockCounter interface {
	CountLowStock(ctx context.Context) (int64, error)
}

type salesTotaler interface {
	SumTotalsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type prescriptionCounter interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// Service aggregates dashboard figures.
type Service interface {
	Stats(ctx context.Context, actor authz.Principal) (*Stats, error)
}

// ServiceParams bundles the counters the dashboard reads from.
type ServiceParams struct {
	Medicines     medicineCounter
	Inventory     lowStockCounter
	Sales         salesTotaler
	Prescriptions prescriptionCounter
}

type service struct {
	params ServiceParams
	now    func() time.Time
}

// NewService builds the dashboard service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Medicines == nil:
		return nil, fmt.Errorf("medicine counter required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory counter required")
	case params.Sales == nil:
		return nil, fmt.Errorf("sales totaler required")
	case params.Prescriptions == nil:
		return nil, fmt.Errorf("prescription counter required")
	}
	return &service{params: params, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Stats runs the four aggregate queries concurrently. "Today" is the current
// UTC calendar day.
func (s *service) Stats(ctx context.Context, actor authz.Principal) (*Stats, error) {
	if err := actor.Require(authz.DashboardRead); err != nil {
		return nil, err
	}

	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	var out Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.params.Medicines.CountActiveMedicines(gctx)
		out.TotalMedicines = n
		return err
	})
	g.Go(func() error {
		n, err := s.params.Inventory.CountLowStock(gctx)
		out.LowStockItems = n
		return err
	})
	g.Go(func() error {
		total, err := s.params.Sales.SumTotalsBetween(gctx, from, to)
		out.TodaysSales = total
		return err
	})
	g.Go(func() error {
		n, err := s.params.Prescriptions.CountCreatedBetween(gctx, from, to)
		out.TodaysPrescriptions = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dashboard stats")
	}
	return &out, nil
}
