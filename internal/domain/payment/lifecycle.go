package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-servicing-backend/internal/domain/apperr"
)

const defaultRejectionReason = "Rejected by staff"

var (
	lateFeeRate  = decimal.New(5, -2)
	lateFeeFloor = decimal.NewFromInt(25)
)

func (p *Payment) transitionErr(action string, reason error) error {
	return &apperr.TransitionError{Entity: "payment", ID: p.PaymentID, From: string(p.Status), Action: action, Reason: reason}
}

// MarkPaid is the direct-recording path: pending → paid.
func (p *Payment) MarkPaid(method, transactionID string, now time.Time) error {
	if p.Status != StatusPending {
		return p.transitionErr("record", nil)
	}
	if strings.TrimSpace(method) == "" {
		return apperr.Validation("payment_method", "is required")
	}
	paid := now.UTC()
	p.Status = StatusPaid
	p.PaidDate = &paid
	p.PaymentMethod = method
	p.TransactionID = transactionID
	return nil
}

// MarkVerified approves a submission: awaiting_verification → paid.
func (p *Payment) MarkVerified(verifierID string, now time.Time) error {
	if p.Status != StatusAwaitingVerification {
		return p.transitionErr("verify", ErrNotAwaitingVerification)
	}
	at := now.UTC()
	v := verifierID
	p.Status = StatusPaid
	p.PaidDate = &at
	p.VerifiedBy = &v
	p.VerifiedAt = &at
	return nil
}

// MarkRejected refuses a submission: awaiting_verification → rejected.
func (p *Payment) MarkRejected(reason, verifierID string, now time.Time) error {
	if p.Status != StatusAwaitingVerification {
		return p.transitionErr("reject", ErrNotAwaitingVerification)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}
	at := now.UTC()
	v := verifierID
	p.Status = StatusRejected
	p.RejectionReason = reason
	p.VerifiedBy = &v
	p.VerifiedAt = &at
	return nil
}

// IsOverdue: still owed and due strictly before today's date.
func (p *Payment) IsOverdue(today time.Time) bool {
	return p.Status == StatusPending && p.DueDate.Before(today)
}

// LateFeeAt is 5% of the installment with a 25.00 floor, zero when not overdue.
func (p *Payment) LateFeeAt(today time.Time) decimal.Decimal {
	if !p.IsOverdue(today) {
		return decimal.Zero
	}
	return decimal.Max(p.Amount.Mul(lateFeeRate).Round(2), lateFeeFloor)
}

// DaysOverdueAt counts whole days past the due date.
func (p *Payment) DaysOverdueAt(today time.Time) int {
	if !p.IsOverdue(today) {
		return 0
	}
	return int(today.Sub(p.DueDate).Hours() / 24)
}

// ValidMethod reports whether m is one of allowed.
func ValidMethod(m string, allowed []string) bool {
	for _, a := range allowed {
		if a == m {
			return true
		}
	}
	return false
}
