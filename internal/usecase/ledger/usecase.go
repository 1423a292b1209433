package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/authz"
	"loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
	"loan-servicing-backend/internal/domain/uow"
	"loan-servicing-backend/internal/infrastructure/metrics"
	"loan-servicing-backend/pkg/clock"
	"loan-servicing-backend/pkg/id"
)

const (
	DefaultUpcomingDays = 30
	maxUpcomingDays     = 365
)

type Usecase struct {
	loans    loan.Repository
	payments payment.Repository
	uow      uow.UnitOfWork
	clock    clock.Clock
	log      *zap.Logger
}

func NewUsecase(loans loan.Repository, payments payment.Repository, tx uow.UnitOfWork, clk clock.Clock, log *zap.Logger) *Usecase {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{loans: loans, payments: payments, uow: tx, clock: clk, log: log}
}

func loanParties(l *loan.Loan) authz.Parties {
	p := authz.Parties{BorrowerID: l.BorrowerID}
	if l.LoanOfficerID != nil {
		p.LoanOfficerID = *l.LoanOfficerID
	}
	return p
}

// RecordPayment marks one installment paid and posts it to the loan, all under the loan row lock.
func (u *Usecase) RecordPayment(ctx context.Context, actor authz.Actor, in RecordInput) (*PostingDTO, error) {
	method := strings.TrimSpace(in.Method)
	if !payment.ValidMethod(method, payment.RecordMethods) {
		return nil, apperr.Validation("payment_method", "must be one of "+strings.Join(payment.RecordMethods, ", "))
	}

	var out *PostingDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if err := authz.Authorize(actor, authz.ActionRecordPayment, loanParties(l)); err != nil {
			return err
		}
		if !loan.CanTransition(l.Status, loan.ActionPost) {
			return &apperr.TransitionError{Entity: "loan", ID: l.LoanID, From: string(l.Status), Action: string(loan.ActionPost)}
		}

		p, err := u.pick(ctx, r, l, in.PaymentID)
		if err != nil {
			return err
		}
		txRef := strings.TrimSpace(in.TransactionRef)
		if txRef == "" {
			txRef = id.NewTransactionRef()
		}
		now := u.clock.Now()
		if err := p.MarkPaid(method, txRef, now); err != nil {
			return err
		}
		completed, err := Post(ctx, r, l, p, now, u.log)
		if err != nil {
			return err
		}
		out = &PostingDTO{
			Payment:            ToDTO(p, l.LoanID),
			OutstandingBalance: l.OutstandingBalance,
			LoanStatus:         string(l.Status),
			Completed:          completed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Posted(metrics.PathRecorded)
	return out, nil
}

func (u *Usecase) pick(ctx context.Context, r uow.Repos, l *loan.Loan, paymentID string) (*payment.Payment, error) {
	if paymentID == "" {
		p, err := r.Payments.NextPendingForUpdate(ctx, l.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, &apperr.ConflictError{Entity: "loan", ID: l.LoanID, Message: "no pending installments"}
		}
		return p, err
	}
	p, err := r.Payments.GetByPaymentIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// ids from another loan are reported as missing
	if p.LoanRef != l.ID {
		return nil, apperr.NotFound("payment", paymentID)
	}
	return p, nil
}

// ListPayments returns every ledger row of the loan, scheduled and submitted, by due date.
func (u *Usecase) ListPayments(ctx context.Context, actor authz.Actor, loanID string) ([]PaymentDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionViewLoan, loanParties(l)); err != nil {
		return nil, err
	}
	ps, err := u.payments.ListByLoan(ctx, l.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	today := clock.Date(u.clock.Now())
	out := make([]PaymentDTO, 0, len(ps))
	for i := range ps {
		out = append(out, u.annotated(&ps[i], l.LoanID, today))
	}
	return out, nil
}

// Upcoming lists the caller's pending installments due within the next days days (today included).
func (u *Usecase) Upcoming(ctx context.Context, actor authz.Actor, days int) ([]PaymentDTO, error) {
	if days == 0 {
		days = DefaultUpcomingDays
	}
	if days < 0 || days > maxUpcomingDays {
		return nil, apperr.Validation("days", fmt.Sprintf("must be between 1 and %d", maxUpcomingDays))
	}
	refs, ids, err := u.activeLoans(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []PaymentDTO{}, nil
	}
	today := clock.Date(u.clock.Now())
	ps, err := u.payments.ListPendingDueBetween(ctx, refs, today, today.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	out := make([]PaymentDTO, 0, len(ps))
	for i := range ps {
		out = append(out, ToDTO(&ps[i], ids[ps[i].LoanRef]))
	}
	return out, nil
}

// Overdue lists the caller's pending installments past their due date, with the late fee they carry today.
func (u *Usecase) Overdue(ctx context.Context, actor authz.Actor) ([]PaymentDTO, error) {
	refs, ids, err := u.activeLoans(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []PaymentDTO{}, nil
	}
	today := clock.Date(u.clock.Now())
	ps, err := u.payments.ListPendingDueBefore(ctx, refs, today)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentDTO, 0, len(ps))
	for i := range ps {
		out = append(out, u.annotated(&ps[i], ids[ps[i].LoanRef], today))
	}
	return out, nil
}

// AwaitingVerification is the staff review queue: submissions on every loan, oldest first.
func (u *Usecase) AwaitingVerification(ctx context.Context, actor authz.Actor) ([]PaymentDTO, error) {
	if err := authz.Authorize(actor, authz.ActionReviewQueue, authz.Parties{}); err != nil {
		return nil, err
	}
	ps, err := u.payments.ListAwaitingVerification(ctx)
	if err != nil {
		return nil, fmt.Errorf("list awaiting verification: %w", err)
	}
	ids := make(map[uint64]string)
	out := make([]PaymentDTO, 0, len(ps))
	for i := range ps {
		ref := ps[i].LoanRef
		loanID, ok := ids[ref]
		if !ok {
			l, err := u.loans.GetByNumericID(ctx, ref)
			if err != nil {
				return nil, err
			}
			loanID = l.LoanID
			ids[ref] = loanID
		}
		out = append(out, ToDTO(&ps[i], loanID))
	}
	return out, nil
}

func (u *Usecase) activeLoans(ctx context.Context, actor authz.Actor) ([]uint64, map[uint64]string, error) {
	if err := authz.Authorize(actor, authz.ActionViewOwnLedger, authz.Parties{BorrowerID: actor.ID}); err != nil {
		return nil, nil, err
	}
	ls, err := u.loans.ListActiveByBorrower(ctx, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	refs := make([]uint64, 0, len(ls))
	ids := make(map[uint64]string, len(ls))
	for _, l := range ls {
		refs = append(refs, l.ID)
		ids[l.ID] = l.LoanID
	}
	return refs, ids, nil
}

// annotated fills overdue days and late fee as of today for rows the sweep has not stamped yet.
func (u *Usecase) annotated(p *payment.Payment, loanID string, today time.Time) PaymentDTO {
	dto := ToDTO(p, loanID)
	if p.IsOverdue(today) {
		dto.DaysOverdue = p.DaysOverdueAt(today)
		dto.LateFee = p.LateFeeAt(today)
	}
	return dto
}
