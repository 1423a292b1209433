package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateBatch(ctx context.Context, ps []Payment) error
	Create(ctx context.Context, p *Payment) error
	Save(ctx context.Context, p *Payment) error

	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	// GetByPaymentIDForUpdate locks the row until the surrounding tx ends.
	GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*Payment, error)
	// NextPendingForUpdate locks the earliest pending installment of the loan (due_date, period).
	NextPendingForUpdate(ctx context.Context, loanRef uint64) (*Payment, error)

	ListByLoan(ctx context.Context, loanRef uint64) ([]Payment, error)
	CountByStatus(ctx context.Context, loanRef uint64, statuses ...Status) (int64, error)
	// DeleteByLoan hard-deletes every ledger row of the loan.
	DeleteByLoan(ctx context.Context, loanRef uint64) error

	ListPendingDueBetween(ctx context.Context, loanRefs []uint64, from, to time.Time) ([]Payment, error)
	ListPendingDueBefore(ctx context.Context, loanRefs []uint64, before time.Time) ([]Payment, error)
	// ListAwaitingVerification returns submissions waiting for review across all loans, oldest first.
	ListAwaitingVerification(ctx context.Context) ([]Payment, error)
	// ListOverdueOnActiveLoans returns pending rows due before the date on loans in active status.
	ListOverdueOnActiveLoans(ctx context.Context, before time.Time) ([]Payment, error)
	// StampOverdue sets days_overdue and late_fee on a row that is still pending.
	// It reports false when the row has left pending in the meantime.
	StampOverdue(ctx context.Context, id uint64, daysOverdue int, lateFee decimal.Decimal) (bool, error)
}
