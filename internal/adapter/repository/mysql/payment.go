package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loan-servicing-backend/internal/domain/apperr"
	loanDomain "loan-servicing-backend/internal/domain/loan"
	paymentDomain "loan-servicing-backend/internal/domain/payment"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) CreateBatch(ctx context.Context, ps []paymentDomain.Payment) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(ps, 100).Error
}

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) Save(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&out)
	return paymentOrNotFound(&out, res.Error, paymentID)
}

func (r *PaymentRepository) GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", paymentID).
		First(&out)
	return paymentOrNotFound(&out, res.Error, paymentID)
}

func (r *PaymentRepository) NextPendingForUpdate(ctx context.Context, loanRef uint64) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ? AND status = ?", loanRef, paymentDomain.StatusPending).
		Order("due_date ASC, period ASC, id ASC").
		First(&out)
	return paymentOrNotFound(&out, res.Error, "next pending")
}

func (r *PaymentRepository) ListByLoan(ctx context.Context, loanRef uint64) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanRef).
		Order("due_date ASC, period ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) CountByStatus(ctx context.Context, loanRef uint64, statuses ...paymentDomain.Status) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&paymentDomain.Payment{}).
		Where("loan_id = ? AND status IN ?", loanRef, statuses).
		Count(&n)
	return n, res.Error
}

func (r *PaymentRepository) DeleteByLoan(ctx context.Context, loanRef uint64) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("loan_id = ?", loanRef).
		Delete(&paymentDomain.Payment{}).Error
}

func (r *PaymentRepository) ListPendingDueBetween(ctx context.Context, loanRefs []uint64, from, to time.Time) ([]paymentDomain.Payment, error) {
	if len(loanRefs) == 0 {
		return nil, nil
	}
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("loan_id IN ? AND status = ? AND due_date >= ? AND due_date <= ?",
			loanRefs, paymentDomain.StatusPending, from, to).
		Order("due_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) ListPendingDueBefore(ctx context.Context, loanRefs []uint64, before time.Time) ([]paymentDomain.Payment, error) {
	if len(loanRefs) == 0 {
		return nil, nil
	}
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("loan_id IN ? AND status = ? AND due_date < ?", loanRefs, paymentDomain.StatusPending, before).
		Order("due_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) ListAwaitingVerification(ctx context.Context) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("status = ?", paymentDomain.StatusAwaitingVerification).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) ListOverdueOnActiveLoans(ctx context.Context, before time.Time) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Select("payments.*").
		Joins("JOIN loans ON loans.id = payments.loan_id AND loans.deleted_at IS NULL").
		Where("loans.status = ? AND payments.status = ? AND payments.due_date < ?",
			loanDomain.StatusActive, paymentDomain.StatusPending, before).
		Order("payments.due_date ASC, payments.id ASC").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) StampOverdue(ctx context.Context, id uint64, daysOverdue int, lateFee decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&paymentDomain.Payment{}).
		Where("id = ? AND status = ?", id, paymentDomain.StatusPending).
		Updates(map[string]any{"days_overdue": daysOverdue, "late_fee": lateFee})
	return res.RowsAffected == 1, res.Error
}

func paymentOrNotFound(p *paymentDomain.Payment, err error, id string) (*paymentDomain.Payment, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("payment", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
