package loan

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDefaulted Status = "defaulted"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusActive, StatusCompleted, StatusDefaulted}

// Terminal statuses admit no further transition.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusDefaulted
}

type Loan struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID     string `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	LoanNumber string `gorm:"size:32;uniqueIndex:ux_loans_loan_number" json:"loan_number"`

	BorrowerID    string  `gorm:"size:64;index:idx_loans_borrower_status" json:"borrower_id"`
	LenderID      *string `gorm:"size:64" json:"lender_id"`
	LoanOfficerID *string `gorm:"size:64" json:"loan_officer_id"`

	Type             string              `gorm:"size:32" json:"type"`
	Purpose          string              `gorm:"type:text" json:"purpose"`
	EmploymentStatus string              `gorm:"size:64" json:"employment_status,omitempty"`
	PrincipalAmount  decimal.Decimal     `gorm:"type:decimal(18,2)" json:"principal_amount"`
	ApprovedAmount   decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"approved_amount"`
	InterestRate     decimal.Decimal     `gorm:"type:decimal(5,2)" json:"interest_rate"`
	TermMonths       int                 `json:"term_months"`
	// TotalAmount is the quoted repayable amount: financed amount plus flat interest.
	TotalAmount        decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_amount"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(18,2)" json:"outstanding_balance"`

	Status          Status `gorm:"size:16;index:idx_loans_borrower_status;default:'pending'" json:"status"`
	RejectionReason string `gorm:"type:text" json:"rejection_reason,omitempty"`

	ApprovedAt       *time.Time `json:"approved_at"`
	RejectedAt       *time.Time `json:"rejected_at"`
	StartDate        *time.Time `gorm:"type:date" json:"start_date"`
	FirstPaymentDate *time.Time `gorm:"type:date" json:"first_payment_date"`
	DisbursementDate *time.Time `gorm:"type:date" json:"disbursement_date"`
	CompletedAt      *time.Time `json:"completed_at"`
	DefaultedAt      *time.Time `json:"defaulted_at"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// FinancedAmount is the approved amount once set, otherwise the requested principal.
func (l *Loan) FinancedAmount() decimal.Decimal {
	if l.ApprovedAmount.Valid {
		return l.ApprovedAmount.Decimal
	}
	return l.PrincipalAmount
}
