package paymentmock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "loan-servicing-backend/internal/domain/payment"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset single-row lookups return context.Canceled; everything else is a no-op.
type Repo struct {
	CreateBatchFn              func(ctx context.Context, ps []domain.Payment) error
	CreateFn                   func(ctx context.Context, p *domain.Payment) error
	SaveFn                     func(ctx context.Context, p *domain.Payment) error
	GetByPaymentIDFn           func(ctx context.Context, paymentID string) (*domain.Payment, error)
	GetByPaymentIDForUpdateFn  func(ctx context.Context, paymentID string) (*domain.Payment, error)
	NextPendingForUpdateFn     func(ctx context.Context, loanRef uint64) (*domain.Payment, error)
	ListByLoanFn               func(ctx context.Context, loanRef uint64) ([]domain.Payment, error)
	CountByStatusFn            func(ctx context.Context, loanRef uint64, statuses ...domain.Status) (int64, error)
	DeleteByLoanFn             func(ctx context.Context, loanRef uint64) error
	ListPendingDueBetweenFn    func(ctx context.Context, loanRefs []uint64, from, to time.Time) ([]domain.Payment, error)
	ListPendingDueBeforeFn     func(ctx context.Context, loanRefs []uint64, before time.Time) ([]domain.Payment, error)
	ListAwaitingVerificationFn func(ctx context.Context) ([]domain.Payment, error)
	ListOverdueOnActiveLoansFn func(ctx context.Context, before time.Time) ([]domain.Payment, error)
	StampOverdueFn             func(ctx context.Context, id uint64, daysOverdue int, lateFee decimal.Decimal) (bool, error)
}

func (m *Repo) CreateBatch(ctx context.Context, ps []domain.Payment) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, ps)
	}
	return nil
}

func (m *Repo) Create(ctx context.Context, p *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, p *domain.Payment) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if m.GetByPaymentIDFn != nil {
		return m.GetByPaymentIDFn(ctx, paymentID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if m.GetByPaymentIDForUpdateFn != nil {
		return m.GetByPaymentIDForUpdateFn(ctx, paymentID)
	}
	return nil, context.Canceled
}

func (m *Repo) NextPendingForUpdate(ctx context.Context, loanRef uint64) (*domain.Payment, error) {
	if m.NextPendingForUpdateFn != nil {
		return m.NextPendingForUpdateFn(ctx, loanRef)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLoan(ctx context.Context, loanRef uint64) ([]domain.Payment, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanRef)
	}
	return nil, nil
}

func (m *Repo) CountByStatus(ctx context.Context, loanRef uint64, statuses ...domain.Status) (int64, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx, loanRef, statuses...)
	}
	return 0, nil
}

func (m *Repo) DeleteByLoan(ctx context.Context, loanRef uint64) error {
	if m.DeleteByLoanFn != nil {
		return m.DeleteByLoanFn(ctx, loanRef)
	}
	return nil
}

func (m *Repo) ListPendingDueBetween(ctx context.Context, loanRefs []uint64, from, to time.Time) ([]domain.Payment, error) {
	if m.ListPendingDueBetweenFn != nil {
		return m.ListPendingDueBetweenFn(ctx, loanRefs, from, to)
	}
	return nil, nil
}

func (m *Repo) ListPendingDueBefore(ctx context.Context, loanRefs []uint64, before time.Time) ([]domain.Payment, error) {
	if m.ListPendingDueBeforeFn != nil {
		return m.ListPendingDueBeforeFn(ctx, loanRefs, before)
	}
	return nil, nil
}

func (m *Repo) ListAwaitingVerification(ctx context.Context) ([]domain.Payment, error) {
	if m.ListAwaitingVerificationFn != nil {
		return m.ListAwaitingVerificationFn(ctx)
	}
	return nil, nil
}

func (m *Repo) ListOverdueOnActiveLoans(ctx context.Context, before time.Time) ([]domain.Payment, error) {
	if m.ListOverdueOnActiveLoansFn != nil {
		return m.ListOverdueOnActiveLoansFn(ctx, before)
	}
	return nil, nil
}

func (m *Repo) StampOverdue(ctx context.Context, id uint64, daysOverdue int, lateFee decimal.Decimal) (bool, error) {
	if m.StampOverdueFn != nil {
		return m.StampOverdueFn(ctx, id, daysOverdue, lateFee)
	}
	return true, nil
}
