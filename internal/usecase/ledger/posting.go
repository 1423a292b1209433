package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
	"loan-servicing-backend/internal/domain/uow"
	"loan-servicing-backend/internal/infrastructure/metrics"
)

// Post persists a payment that has just become paid and applies it to the locked loan:
// the balance drops by the payment amount and the loan completes when nothing is left.
// r must be bound to the transaction holding the loan row lock.
func Post(ctx context.Context, r uow.Repos, l *loan.Loan, p *payment.Payment, now time.Time, log *zap.Logger) (completed bool, err error) {
	if err := r.Payments.Save(ctx, p); err != nil {
		return false, err
	}
	pending, err := r.Payments.CountByStatus(ctx, l.ID, payment.StatusPending)
	if err != nil {
		return false, err
	}
	completed, err = l.ApplyPosting(p.Amount, pending, now)
	if err != nil {
		return false, err
	}
	if err := r.Loans.Save(ctx, l); err != nil {
		return false, err
	}

	log.Info("payment posted",
		zap.String("loan_id", l.LoanID),
		zap.String("payment_id", p.PaymentID),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.String("outstanding_balance", l.OutstandingBalance.StringFixed(2)),
		zap.Int64("pending_left", pending))
	if completed {
		metrics.Transition(string(loan.ActionComplete))
		log.Info("loan completed", zap.String("loan_id", l.LoanID))
	}
	return completed, nil
}
