package uow

import (
	"context"

	"loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
)

// Repos are bound to the running transaction.
type Repos struct {
	Loans    loan.Repository
	Payments payment.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
