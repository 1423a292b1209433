// Package overdue stamps days-overdue and late fees on past-due installments.
// The stamp is informational: statuses and loan balances are never changed here.
package overdue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/payment"
	"loan-servicing-backend/internal/infrastructure/metrics"
	"loan-servicing-backend/pkg/clock"
)

type Sweeper struct {
	payments payment.Repository
	clock    clock.Clock
	log      *zap.Logger
}

func NewSweeper(payments payment.Repository, clk clock.Clock, log *zap.Logger) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{payments: payments, clock: clk, log: log}
}

// Run stamps every pending installment of an active loan whose due date has passed.
// It returns how many rows changed.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	today := clock.Date(s.clock.Now())
	rows, err := s.payments.ListOverdueOnActiveLoans(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}

	stamped := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return stamped, err
		}
		p := &rows[i]
		days, fee := p.DaysOverdueAt(today), p.LateFeeAt(today)
		if days == p.DaysOverdue && fee.Equal(p.LateFee) {
			continue
		}
		ok, err := s.payments.StampOverdue(ctx, p.ID, days, fee)
		if err != nil {
			return stamped, fmt.Errorf("stamp payment %s: %w", p.PaymentID, err)
		}
		// paid between the read and the update
		if !ok {
			continue
		}
		stamped++
	}

	metrics.LateFeesStamped.Add(float64(stamped))
	s.log.Info("overdue sweep finished",
		zap.Time("as_of", today),
		zap.Int("overdue", len(rows)),
		zap.Int("stamped", stamped))
	return stamped, nil
}
