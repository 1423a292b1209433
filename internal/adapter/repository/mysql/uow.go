package mysql

import (
	"context"
	"errors"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/uow"
)

const (
	erDeadlock        = 1213
	erLockWaitTimeout = 1205
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:    &LoanRepository{db: tx},
		Payments: &PaymentRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.repos(tx))
	})
	return translateLockErr(err, "")
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := u.repos(tx)
		// lock the loan row up-front so concurrent postings serialise on it
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
	return translateLockErr(err, loanID)
}

// translateLockErr turns MySQL deadlocks and lock-wait timeouts into retryable conflicts.
func translateLockErr(err error, loanID string) error {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && (me.Number == erDeadlock || me.Number == erLockWaitTimeout) {
		return &apperr.ConflictError{Entity: "loan", ID: loanID, Message: "concurrent update, retry", Err: err}
	}
	return err
}
