package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"loan-servicing-backend/internal/domain/payment"
)

type RecordInput struct {
	LoanID string `json:"-"`
	// PaymentID selects a specific installment; empty means the earliest pending one.
	PaymentID      string `json:"payment_id"`
	Method         string `json:"payment_method"`
	TransactionRef string `json:"transaction_id"`
}

type PaymentDTO struct {
	PaymentID       string          `json:"payment_id"`
	LoanID          string          `json:"loan_id"`
	Period          int             `json:"period,omitempty"`
	Source          string          `json:"source"`
	Amount          decimal.Decimal `json:"amount"`
	DueDate         time.Time       `json:"due_date"`
	Status          string          `json:"status"`
	PaidDate        *time.Time      `json:"paid_date,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	ProofOfPayment  string          `json:"proof_of_payment,omitempty"`
	VerifiedBy      *string         `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	DaysOverdue     int             `json:"days_overdue"`
	LateFee         decimal.Decimal `json:"late_fee"`
}

// PostingDTO is the ledger row together with the loan balance it left behind.
type PostingDTO struct {
	Payment            PaymentDTO      `json:"payment"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	LoanStatus         string          `json:"loan_status"`
	Completed          bool            `json:"completed"`
}

// ToDTO renders p; loanID is the public id of the owning loan.
func ToDTO(p *payment.Payment, loanID string) PaymentDTO {
	return PaymentDTO{
		PaymentID:       p.PaymentID,
		LoanID:          loanID,
		Period:          p.Period,
		Source:          string(p.Source),
		Amount:          p.Amount,
		DueDate:         p.DueDate,
		Status:          string(p.Status),
		PaidDate:        p.PaidDate,
		PaymentMethod:   p.PaymentMethod,
		TransactionID:   p.TransactionID,
		ProofOfPayment:  p.ProofOfPayment,
		VerifiedBy:      p.VerifiedBy,
		VerifiedAt:      p.VerifiedAt,
		RejectionReason: p.RejectionReason,
		DaysOverdue:     p.DaysOverdue,
		LateFee:         p.LateFee,
	}
}
