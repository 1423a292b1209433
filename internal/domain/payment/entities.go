package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending              Status = "pending"
	StatusPaid                 Status = "paid"
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusRejected             Status = "rejected"
)

// Source tells scheduled installments apart from borrower proof submissions.
type Source string

const (
	SourceSchedule   Source = "schedule"
	SourceSubmission Source = "submission"
)

var ErrNotAwaitingVerification = errors.New("payment is not awaiting verification")

// Recording methods accepted on the direct (staff) path.
var RecordMethods = []string{"credit_card", "debit_card", "bank_transfer", "check"}

// Submission methods accepted with proof of payment.
var SubmissionMethods = []string{"card", "bank", "ewallet"}

type Payment struct {
	ID        uint64 `gorm:"primaryKey;column:id" json:"-"`
	PaymentID string `gorm:"size:32;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	// LoanRef is the numeric FK to loans.id.
	LoanRef uint64 `gorm:"column:loan_id;not null;index:idx_payments_loan_status_due" json:"-"`
	Period  int    `json:"period,omitempty"`
	Source  Source `gorm:"size:16;default:'schedule'" json:"source"`

	Amount  decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	DueDate time.Time       `gorm:"type:date;index:idx_payments_loan_status_due" json:"due_date"`
	Status  Status          `gorm:"size:32;default:'pending';index:idx_payments_loan_status_due" json:"status"`

	PaidDate       *time.Time `json:"paid_date"`
	PaymentMethod  string     `gorm:"size:32" json:"payment_method,omitempty"`
	TransactionID  string     `gorm:"size:64" json:"transaction_id,omitempty"`
	ProofOfPayment string     `gorm:"type:text" json:"proof_of_payment,omitempty"`

	VerifiedBy      *string    `gorm:"size:64" json:"verified_by"`
	VerifiedAt      *time.Time `json:"verified_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	DaysOverdue int             `json:"days_overdue"`
	LateFee     decimal.Decimal `gorm:"type:decimal(18,2)" json:"late_fee"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string { return "payments" }
