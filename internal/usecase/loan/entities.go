package loan

import (
	"time"

	"github.com/shopspring/decimal"

	domain "loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
)

type ApplyInput struct {
	Type             string          `json:"type"`
	Purpose          string          `json:"purpose"`
	EmploymentStatus string          `json:"employment_status"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	TermMonths       int             `json:"term_months"`
}

type ApproveInput struct {
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
	// InterestRate overrides the applied rate when set.
	InterestRate  *decimal.Decimal `json:"interest_rate"`
	LenderID      string           `json:"lender_id"`
	LoanOfficerID string           `json:"loan_officer_id"`
}

type ActivateInput struct {
	StartDate        time.Time `json:"start_date"`
	FirstPaymentDate time.Time `json:"first_payment_date"`
}

type QuoteInput struct {
	PrincipalAmount decimal.Decimal
	InterestRate    decimal.Decimal
	TermMonths      int
	FirstDueDate    time.Time
}

type LoanDTO struct {
	LoanID             string                `json:"loan_id"`
	LoanNumber         string                `json:"loan_number"`
	BorrowerID         string                `json:"borrower_id"`
	LenderID           *string               `json:"lender_id"`
	LoanOfficerID      *string               `json:"loan_officer_id"`
	Type               string                `json:"type"`
	Purpose            string                `json:"purpose"`
	EmploymentStatus   string                `json:"employment_status,omitempty"`
	PrincipalAmount    decimal.Decimal       `json:"principal_amount"`
	ApprovedAmount     *decimal.Decimal      `json:"approved_amount"`
	InterestRate       decimal.Decimal       `json:"interest_rate"`
	TermMonths         int                   `json:"term_months"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	OutstandingBalance decimal.Decimal       `json:"outstanding_balance"`
	Status             string                `json:"status"`
	RejectionReason    string                `json:"rejection_reason,omitempty"`
	ApprovedAt         *time.Time            `json:"approved_at,omitempty"`
	RejectedAt         *time.Time            `json:"rejected_at,omitempty"`
	StartDate          *time.Time            `json:"start_date,omitempty"`
	FirstPaymentDate   *time.Time            `json:"first_payment_date,omitempty"`
	DisbursementDate   *time.Time            `json:"disbursement_date,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	DefaultedAt        *time.Time            `json:"defaulted_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	Schedule           []ScheduledPaymentDTO `json:"schedule,omitempty"`
}

type ScheduledPaymentDTO struct {
	PaymentID string          `json:"payment_id"`
	Period    int             `json:"period"`
	DueDate   time.Time       `json:"due_date"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

type QuoteDTO struct {
	MonthlyPayment decimal.Decimal  `json:"monthly_payment"`
	TotalInterest  decimal.Decimal  `json:"total_interest"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Installments   []InstallmentDTO `json:"installments"`
}

type InstallmentDTO struct {
	Period  int             `json:"period"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	dto := &LoanDTO{
		LoanID:             l.LoanID,
		LoanNumber:         l.LoanNumber,
		BorrowerID:         l.BorrowerID,
		LenderID:           l.LenderID,
		LoanOfficerID:      l.LoanOfficerID,
		Type:               l.Type,
		Purpose:            l.Purpose,
		EmploymentStatus:   l.EmploymentStatus,
		PrincipalAmount:    l.PrincipalAmount,
		InterestRate:       l.InterestRate,
		TermMonths:         l.TermMonths,
		TotalAmount:        l.TotalAmount,
		OutstandingBalance: l.OutstandingBalance,
		Status:             string(l.Status),
		RejectionReason:    l.RejectionReason,
		ApprovedAt:         l.ApprovedAt,
		RejectedAt:         l.RejectedAt,
		StartDate:          l.StartDate,
		FirstPaymentDate:   l.FirstPaymentDate,
		DisbursementDate:   l.DisbursementDate,
		CompletedAt:        l.CompletedAt,
		DefaultedAt:        l.DefaultedAt,
		CreatedAt:          l.CreatedAt,
	}
	if l.ApprovedAmount.Valid {
		a := l.ApprovedAmount.Decimal
		dto.ApprovedAmount = &a
	}
	return dto
}

func toScheduleDTO(ps []payment.Payment) []ScheduledPaymentDTO {
	out := make([]ScheduledPaymentDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, ScheduledPaymentDTO{
			PaymentID: p.PaymentID,
			Period:    p.Period,
			DueDate:   p.DueDate,
			Amount:    p.Amount,
			Status:    string(p.Status),
		})
	}
	return out
}
