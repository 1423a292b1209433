package loan

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-servicing-backend/internal/domain/amortization"
	"loan-servicing-backend/internal/domain/apperr"
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionActivate Action = "activate"
	ActionComplete Action = "complete"
	ActionDefault  Action = "default"
	// ActionPost is not a status change; it requires an active loan.
	ActionPost Action = "post payment to"
)

var (
	// ErrOnlyApprovedActivate narrows the activation transition error.
	ErrOnlyApprovedActivate = errors.New("only approved loans can be activated")
	// ErrClosed marks a transition attempted on a rejected, completed or defaulted loan.
	ErrClosed = errors.New("loan is closed")
)

type edge struct{ from, to Status }

var transitions = map[Action]edge{
	ActionApprove:  {StatusPending, StatusApproved},
	ActionReject:   {StatusPending, StatusRejected},
	ActionActivate: {StatusApproved, StatusActive},
	ActionComplete: {StatusActive, StatusCompleted},
	ActionDefault:  {StatusActive, StatusDefaulted},
	ActionPost:     {StatusActive, StatusActive},
}

// CompletionEpsilon is the balance at or below which a loan counts as repaid.
var CompletionEpsilon = decimal.New(1, -2)

// CanTransition reports whether action is legal from status.
func CanTransition(from Status, action Action) bool {
	e, ok := transitions[action]
	return ok && e.from == from
}

func (l *Loan) guard(action Action) error {
	if !CanTransition(l.Status, action) {
		e := &apperr.TransitionError{Entity: "loan", ID: l.LoanID, From: string(l.Status), Action: string(action)}
		if l.Status.Terminal() {
			e.Reason = ErrClosed
		}
		return e
	}
	return nil
}

func (l *Loan) move(action Action) { l.Status = transitions[action].to }

type Approval struct {
	Amount decimal.Decimal
	// InterestRate overrides the quoted rate when set.
	InterestRate  *decimal.Decimal
	LenderID      string
	LoanOfficerID string
}

// Approve moves pending → approved. It never touches the payment schedule.
func (l *Loan) Approve(a Approval, now time.Time) error {
	if err := l.guard(ActionApprove); err != nil {
		return err
	}
	if a.Amount.IsNegative() {
		return apperr.Validation("approved_amount", "must be greater than or equal to 0")
	}
	if a.LenderID == "" {
		return apperr.Validation("lender_id", "is required")
	}
	amount := a.Amount.Round(2)
	rate := l.InterestRate
	if a.InterestRate != nil {
		if a.InterestRate.IsNegative() {
			return apperr.Validation("interest_rate", "must not be negative")
		}
		rate = a.InterestRate.Round(2)
	}
	// an approved loan must be activatable; zero approvals never reach the calculator
	if amount.IsPositive() {
		if err := amortization.CheckTerms(amount, rate, l.TermMonths); err != nil {
			return err
		}
	}
	if a.InterestRate != nil {
		l.InterestRate = rate
		l.TotalAmount = amount.Add(amortization.SimpleInterest(amount, rate, l.TermMonths))
	}
	l.ApprovedAmount = decimal.NewNullDecimal(amount)
	lender := a.LenderID
	l.LenderID = &lender
	if a.LoanOfficerID != "" {
		officer := a.LoanOfficerID
		l.LoanOfficerID = &officer
	}
	l.ApprovedAt = stamp(now)
	l.move(ActionApprove)
	return nil
}

// Reject moves pending → rejected and records why.
func (l *Loan) Reject(reason string, now time.Time) error {
	if err := l.guard(ActionReject); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("reason", "is required")
	}
	l.RejectionReason = reason
	l.RejectedAt = stamp(now)
	l.move(ActionReject)
	return nil
}

// Activate moves approved → active: funds are disbursed on startDate and the
// outstanding balance becomes the financed amount plus flat interest over the term.
// The caller materialises the schedule in the same transaction.
func (l *Loan) Activate(startDate, firstPaymentDate time.Time) error {
	// checked on its own, not only through the transition table
	if l.Status != StatusApproved {
		return &apperr.TransitionError{Entity: "loan", ID: l.LoanID, From: string(l.Status), Action: string(ActionActivate), Reason: ErrOnlyApprovedActivate}
	}
	if startDate.IsZero() {
		return apperr.Validation("start_date", "is required")
	}
	if firstPaymentDate.IsZero() {
		return apperr.Validation("first_payment_date", "is required")
	}
	if firstPaymentDate.Before(startDate) {
		return apperr.Validation("first_payment_date", "must be on or after start_date")
	}
	financed := l.FinancedAmount().Round(2)
	if !financed.IsPositive() {
		return apperr.Validation("approved_amount", "must be positive to activate")
	}
	total := financed.Add(amortization.SimpleInterest(financed, l.InterestRate, l.TermMonths))

	l.StartDate = stamp(startDate)
	l.FirstPaymentDate = stamp(firstPaymentDate)
	l.DisbursementDate = stamp(startDate)
	l.TotalAmount = total
	l.OutstandingBalance = total
	l.move(ActionActivate)
	return nil
}

// Complete moves active → completed. Only the ledger triggers it.
func (l *Loan) Complete(now time.Time) error {
	if err := l.guard(ActionComplete); err != nil {
		return err
	}
	l.CompletedAt = stamp(now)
	l.move(ActionComplete)
	return nil
}

// Default moves active → defaulted.
func (l *Loan) Default(now time.Time) error {
	if err := l.guard(ActionDefault); err != nil {
		return err
	}
	l.DefaultedAt = stamp(now)
	l.move(ActionDefault)
	return nil
}

// ApplyPosting decrements the outstanding balance by amount (clamped at zero) and
// completes the loan when the balance is within CompletionEpsilon of zero or no
// pending installments remain. pendingLeft is counted after the posting.
func (l *Loan) ApplyPosting(amount decimal.Decimal, pendingLeft int64, now time.Time) (completed bool, err error) {
	if err := l.guard(ActionPost); err != nil {
		return false, err
	}
	if !amount.IsPositive() {
		return false, apperr.Validation("amount", "must be positive")
	}
	bal := l.OutstandingBalance.Sub(amount)
	if bal.IsNegative() {
		bal = decimal.Zero
	}
	l.OutstandingBalance = bal.Round(2)

	if l.OutstandingBalance.LessThanOrEqual(CompletionEpsilon) || pendingLeft == 0 {
		if err := l.Complete(now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func stamp(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
