// Package verification handles borrower payment submissions and their review by staff.
//
// A submission is accepted only after its proof is stored; the ledger row is inserted
// afterwards under the loan lock. Approval runs the same posting as a direct recording,
// rejection leaves the balance untouched.
package verification

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/authz"
	"loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
	"loan-servicing-backend/internal/domain/proof"
	"loan-servicing-backend/internal/domain/uow"
	"loan-servicing-backend/internal/infrastructure/metrics"
	"loan-servicing-backend/internal/usecase/ledger"
	"loan-servicing-backend/pkg/clock"
	"loan-servicing-backend/pkg/id"
)

const maxReasonLength = 500

var minAmount = decimal.New(1, -2)

type Usecase struct {
	loans    loan.Repository
	payments payment.Repository
	uow      uow.UnitOfWork
	store    proof.Store
	clock    clock.Clock
	log      *zap.Logger
}

func NewUsecase(loans loan.Repository, payments payment.Repository, tx uow.UnitOfWork, store proof.Store, clk clock.Clock, log *zap.Logger) *Usecase {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{loans: loans, payments: payments, uow: tx, store: store, clock: clk, log: log}
}

func parties(l *loan.Loan) authz.Parties {
	p := authz.Parties{BorrowerID: l.BorrowerID}
	if l.LoanOfficerID != nil {
		p.LoanOfficerID = *l.LoanOfficerID
	}
	return p
}

func requireActive(l *loan.Loan) error {
	if !loan.CanTransition(l.Status, loan.ActionPost) {
		return &apperr.TransitionError{Entity: "loan", ID: l.LoanID, From: string(l.Status), Action: "submit payment for"}
	}
	return nil
}

func validateSubmit(in SubmitInput) error {
	switch {
	case in.Amount.LessThan(minAmount):
		return apperr.Validation("amount", "must be at least 0.01")
	case !payment.ValidMethod(in.Method, payment.SubmissionMethods):
		return apperr.Validation("payment_method", "must be one of "+strings.Join(payment.SubmissionMethods, ", "))
	case in.Proof.Body == nil:
		return apperr.Validation("proof_of_payment", "is required")
	case !strings.HasPrefix(in.Proof.ContentType, "image/"):
		return apperr.Validation("proof_of_payment", "must be an image")
	case in.Proof.Size > MaxProofSize:
		return apperr.Validation("proof_of_payment", "must not exceed 10 MiB")
	}
	return nil
}

// Submit records a borrower-initiated payment awaiting staff verification.
func (u *Usecase) Submit(ctx context.Context, actor authz.Actor, in SubmitInput) (*ledger.PaymentDTO, error) {
	if err := validateSubmit(in); err != nil {
		return nil, err
	}

	// checked before any file is written
	l, err := u.loans.GetByLoanID(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionSubmitPayment, parties(l)); err != nil {
		return nil, err
	}
	if err := requireActive(l); err != nil {
		return nil, err
	}

	ref, err := u.store.Save(ctx, l.LoanID, in.Proof)
	if err != nil {
		return nil, fmt.Errorf("store proof of payment: %w", err)
	}

	var dto ledger.PaymentDTO
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, locked *loan.Loan) error {
		// status may have moved while the proof was uploading
		if err := requireActive(locked); err != nil {
			return err
		}
		now := u.clock.Now()
		p := &payment.Payment{
			PaymentID:      id.NewID32(),
			LoanRef:        locked.ID,
			Source:         payment.SourceSubmission,
			Amount:         in.Amount.Round(2),
			DueDate:        clock.Date(now),
			Status:         payment.StatusAwaitingVerification,
			PaymentMethod:  in.Method,
			TransactionID:  id.NewTransactionRef(),
			ProofOfPayment: ref,
			LateFee:        decimal.Zero,
		}
		if err := r.Payments.Create(ctx, p); err != nil {
			return err
		}
		dto = ledger.ToDTO(p, locked.LoanID)
		return nil
	})
	if err != nil {
		u.log.Warn("proof stored but submission not recorded",
			zap.String("loan_id", in.LoanID),
			zap.String("proof_ref", ref),
			zap.Error(err))
		return nil, err
	}

	metrics.Verification(metrics.OutcomeSubmitted)
	u.log.Info("payment submitted",
		zap.String("loan_id", in.LoanID),
		zap.String("payment_id", dto.PaymentID),
		zap.String("amount", dto.Amount.StringFixed(2)))
	return &dto, nil
}

// locate resolves the public loan id that owns paymentID so the loan row can be locked first.
func (u *Usecase) locate(ctx context.Context, paymentID string) (string, error) {
	p, err := u.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return "", err
	}
	l, err := u.loans.GetByNumericID(ctx, p.LoanRef)
	if err != nil {
		return "", err
	}
	return l.LoanID, nil
}

// withPayment locks the owning loan, then the payment, and checks the reviewer may verify it.
func (u *Usecase) withPayment(ctx context.Context, actor authz.Actor, paymentID string, fn func(r uow.Repos, l *loan.Loan, p *payment.Payment) error) error {
	loanID, err := u.locate(ctx, paymentID)
	if err != nil {
		return err
	}
	return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if err := authz.Authorize(actor, authz.ActionVerifyPayment, parties(l)); err != nil {
			return err
		}
		p, err := r.Payments.GetByPaymentIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.LoanRef != l.ID {
			return apperr.NotFound("payment", paymentID)
		}
		return fn(r, l, p)
	})
}

// Approve accepts a submission and posts it against the loan balance.
func (u *Usecase) Approve(ctx context.Context, actor authz.Actor, paymentID string) (*ledger.PostingDTO, error) {
	var out *ledger.PostingDTO
	err := u.withPayment(ctx, actor, paymentID, func(r uow.Repos, l *loan.Loan, p *payment.Payment) error {
		if p.Status != payment.StatusAwaitingVerification {
			return &apperr.TransitionError{Entity: "payment", ID: p.PaymentID, From: string(p.Status), Action: "verify", Reason: payment.ErrNotAwaitingVerification}
		}
		if !loan.CanTransition(l.Status, loan.ActionPost) {
			return &apperr.TransitionError{Entity: "loan", ID: l.LoanID, From: string(l.Status), Action: string(loan.ActionPost)}
		}
		now := u.clock.Now()
		if err := p.MarkVerified(actor.ID, now); err != nil {
			return err
		}
		completed, err := ledger.Post(ctx, r, l, p, now, u.log)
		if err != nil {
			return err
		}
		out = &ledger.PostingDTO{
			Payment:            ledger.ToDTO(p, l.LoanID),
			OutstandingBalance: l.OutstandingBalance,
			LoanStatus:         string(l.Status),
			Completed:          completed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Verification(metrics.OutcomeApproved)
	metrics.Posted(metrics.PathVerified)
	u.log.Info("payment verified", zap.String("payment_id", paymentID), zap.String("verifier_id", actor.ID))
	return out, nil
}

// Reject refuses a submission. The loan balance is not touched.
func (u *Usecase) Reject(ctx context.Context, actor authz.Actor, paymentID, reason string) (*ledger.PaymentDTO, error) {
	if len(reason) > maxReasonLength {
		return nil, apperr.Validation("reason", fmt.Sprintf("must be at most %d characters", maxReasonLength))
	}

	var dto ledger.PaymentDTO
	err := u.withPayment(ctx, actor, paymentID, func(r uow.Repos, l *loan.Loan, p *payment.Payment) error {
		if err := p.MarkRejected(reason, actor.ID, u.clock.Now()); err != nil {
			return err
		}
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}
		dto = ledger.ToDTO(p, l.LoanID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Verification(metrics.OutcomeRejected)
	u.log.Info("payment rejected",
		zap.String("payment_id", paymentID),
		zap.String("verifier_id", actor.ID),
		zap.String("reason", dto.RejectionReason))
	return &dto, nil
}

// OpenProof streams the proof attached to a submission to anyone who may view its loan.
func (u *Usecase) OpenProof(ctx context.Context, actor authz.Actor, paymentID string) (io.ReadCloser, error) {
	p, err := u.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	l, err := u.loans.GetByNumericID(ctx, p.LoanRef)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionViewLoan, parties(l)); err != nil {
		return nil, err
	}
	if p.ProofOfPayment == "" {
		return nil, apperr.NotFound("proof", paymentID)
	}
	return u.store.Open(ctx, p.ProofOfPayment)
}
