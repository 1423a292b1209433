package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate reads the loan holding a row lock until the surrounding tx ends.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	GetByNumericID(ctx context.Context, id uint64) (*Loan, error)
	ListActiveByBorrower(ctx context.Context, borrowerID string) ([]Loan, error)
}
