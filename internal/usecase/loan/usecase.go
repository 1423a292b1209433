package loan

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/amortization"
	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/authz"
	domain "loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
	"loan-servicing-backend/internal/domain/uow"
	"loan-servicing-backend/internal/infrastructure/metrics"
	"loan-servicing-backend/pkg/clock"
	"loan-servicing-backend/pkg/id"
)

const (
	maxTermMonths   = 360
	maxReasonLength = 500
)

var maxRatePercent = decimal.NewFromInt(100)

type Usecase struct {
	loans domain.Repository
	uow   uow.UnitOfWork
	clock clock.Clock
	log   *zap.Logger
}

func NewUsecase(loans domain.Repository, tx uow.UnitOfWork, clk clock.Clock, log *zap.Logger) *Usecase {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{loans: loans, uow: tx, clock: clk, log: log}
}

func parties(l *domain.Loan) authz.Parties {
	p := authz.Parties{BorrowerID: l.BorrowerID}
	if l.LoanOfficerID != nil {
		p.LoanOfficerID = *l.LoanOfficerID
	}
	return p
}

// Apply files a new application for the calling borrower.
func (u *Usecase) Apply(ctx context.Context, actor authz.Actor, in ApplyInput) (*LoanDTO, error) {
	if err := authz.Authorize(actor, authz.ActionApply, authz.Parties{BorrowerID: actor.ID}); err != nil {
		return nil, err
	}
	if err := validateApply(in); err != nil {
		return nil, err
	}

	principal := in.PrincipalAmount.Round(2)
	rate := in.InterestRate.Round(2)
	l := &domain.Loan{
		LoanID:           id.NewID32(),
		LoanNumber:       id.NewLoanNumber(),
		BorrowerID:       actor.ID,
		Type:             strings.TrimSpace(in.Type),
		Purpose:          strings.TrimSpace(in.Purpose),
		EmploymentStatus: strings.TrimSpace(in.EmploymentStatus),
		PrincipalAmount:  principal,
		InterestRate:     rate,
		TermMonths:       in.TermMonths,
		TotalAmount:      principal.Add(amortization.SimpleInterest(principal, rate, in.TermMonths)),
		// balance stays zero until activation
		OutstandingBalance: decimal.Zero,
		Status:             domain.StatusPending,
	}
	if err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Loans.Create(ctx, l)
	}); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	metrics.Transition("apply")
	u.log.Info("loan applied",
		zap.String("loan_id", l.LoanID),
		zap.String("loan_number", l.LoanNumber),
		zap.String("borrower_id", l.BorrowerID),
		zap.String("principal", principal.StringFixed(2)))
	return toDTO(l), nil
}

func validateApply(in ApplyInput) error {
	switch {
	case strings.TrimSpace(in.Type) == "":
		return apperr.Validation("type", "is required")
	case strings.TrimSpace(in.Purpose) == "":
		return apperr.Validation("purpose", "is required")
	case !in.PrincipalAmount.IsPositive():
		return apperr.Validation("principal_amount", "must be greater than 0")
	case in.InterestRate.IsNegative() || in.InterestRate.GreaterThan(maxRatePercent):
		return apperr.Validation("interest_rate", "must be between 0 and 100")
	case in.TermMonths <= 0 || in.TermMonths > maxTermMonths:
		return apperr.Validation("term_months", fmt.Sprintf("must be between 1 and %d", maxTermMonths))
	}
	return amortization.CheckTerms(in.PrincipalAmount.Round(2), in.InterestRate.Round(2), in.TermMonths)
}

func (u *Usecase) Get(ctx context.Context, actor authz.Actor, loanID string) (*LoanDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionViewLoan, parties(l)); err != nil {
		return nil, err
	}
	return toDTO(l), nil
}

// Approve moves a pending loan to approved under a row lock. No payment rows are created.
func (u *Usecase) Approve(ctx context.Context, actor authz.Actor, loanID string, in ApproveInput) (*LoanDTO, error) {
	if in.InterestRate != nil && in.InterestRate.GreaterThan(maxRatePercent) {
		return nil, apperr.Validation("interest_rate", "must be between 0 and 100")
	}

	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if err := authz.Authorize(actor, authz.ActionApprove, parties(l)); err != nil {
			return err
		}

		// a lender approving claims the loan; an admin may assign one
		lender := actor.ID
		if actor.Role == authz.RoleAdmin && in.LenderID != "" {
			lender = in.LenderID
		}
		if err := l.Approve(domain.Approval{
			Amount:        in.ApprovedAmount,
			InterestRate:  in.InterestRate,
			LenderID:      lender,
			LoanOfficerID: in.LoanOfficerID,
		}, u.clock.Now()); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(string(domain.ActionApprove))
	u.log.Info("loan approved",
		zap.String("loan_id", loanID),
		zap.String("actor_id", actor.ID),
		zap.String("approved_amount", dto.ApprovedAmount.StringFixed(2)))
	return dto, nil
}

func (u *Usecase) Reject(ctx context.Context, actor authz.Actor, loanID, reason string) (*LoanDTO, error) {
	if len(reason) > maxReasonLength {
		return nil, apperr.Validation("reason", fmt.Sprintf("must be at most %d characters", maxReasonLength))
	}

	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if err := authz.Authorize(actor, authz.ActionReject, parties(l)); err != nil {
			return err
		}
		if err := l.Reject(reason, u.clock.Now()); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(string(domain.ActionReject))
	u.log.Info("loan rejected", zap.String("loan_id", loanID), zap.String("actor_id", actor.ID))
	return dto, nil
}

// Activate disburses an approved loan and materialises its schedule.
// Existing ledger rows are removed first, so a retried activation never duplicates them.
func (u *Usecase) Activate(ctx context.Context, actor authz.Actor, loanID string, in ActivateInput) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if err := authz.Authorize(actor, authz.ActionActivate, parties(l)); err != nil {
			return err
		}
		if err := l.Activate(clock.Date(in.StartDate), clock.Date(in.FirstPaymentDate)); err != nil {
			return err
		}
		rows, err := u.materialise(ctx, r, l)
		if err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l)
		dto.Schedule = toScheduleDTO(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(string(domain.ActionActivate))
	u.log.Info("loan activated",
		zap.String("loan_id", loanID),
		zap.String("outstanding_balance", dto.OutstandingBalance.StringFixed(2)),
		zap.Int("installments", len(dto.Schedule)))
	return dto, nil
}

// RegenerateSchedule rebuilds the ledger of an active loan that has taken no payments yet.
func (u *Usecase) RegenerateSchedule(ctx context.Context, actor authz.Actor, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if err := authz.Authorize(actor, authz.ActionRegenerate, parties(l)); err != nil {
			return err
		}
		if l.Status != domain.StatusActive {
			return &apperr.TransitionError{Entity: "loan", ID: l.LoanID, From: string(l.Status), Action: "regenerate schedule of"}
		}
		settled, err := r.Payments.CountByStatus(ctx, l.ID, payment.StatusPaid, payment.StatusAwaitingVerification)
		if err != nil {
			return err
		}
		if settled > 0 {
			return &apperr.ConflictError{Entity: "loan", ID: l.LoanID,
				Message: fmt.Sprintf("%d payments already paid or awaiting verification", settled)}
		}
		rows, err := u.materialise(ctx, r, l)
		if err != nil {
			return err
		}
		dto = toDTO(l)
		dto.Schedule = toScheduleDTO(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info("schedule regenerated", zap.String("loan_id", loanID), zap.Int("installments", len(dto.Schedule)))
	return dto, nil
}

// materialise replaces the loan's ledger with a freshly computed schedule.
func (u *Usecase) materialise(ctx context.Context, r uow.Repos, l *domain.Loan) ([]payment.Payment, error) {
	if l.FirstPaymentDate == nil {
		return nil, apperr.Validation("first_payment_date", "is required")
	}
	plan, err := amortization.ComputeSchedule(l.FinancedAmount(), l.InterestRate, l.TermMonths, *l.FirstPaymentDate)
	if err != nil {
		return nil, err
	}
	if err := r.Payments.DeleteByLoan(ctx, l.ID); err != nil {
		return nil, fmt.Errorf("clear schedule: %w", err)
	}
	rows := make([]payment.Payment, 0, len(plan))
	for _, in := range plan {
		rows = append(rows, payment.Payment{
			PaymentID: id.NewID32(),
			LoanRef:   l.ID,
			Period:    in.Period,
			Source:    payment.SourceSchedule,
			Amount:    in.Amount,
			DueDate:   in.DueDate,
			Status:    payment.StatusPending,
			LateFee:   decimal.Zero,
		})
	}
	if err := r.Payments.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	return rows, nil
}

func (u *Usecase) MarkDefaulted(ctx context.Context, actor authz.Actor, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if err := authz.Authorize(actor, authz.ActionDefault, parties(l)); err != nil {
			return err
		}
		if err := l.Default(u.clock.Now()); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(string(domain.ActionDefault))
	u.log.Warn("loan defaulted",
		zap.String("loan_id", loanID),
		zap.String("actor_id", actor.ID),
		zap.String("outstanding_balance", dto.OutstandingBalance.StringFixed(2)))
	return dto, nil
}

// QuoteSchedule previews the amortization of a prospective loan. Nothing is persisted.
func (u *Usecase) QuoteSchedule(in QuoteInput) (*QuoteDTO, error) {
	first := in.FirstDueDate
	if first.IsZero() {
		first = amortization.AddMonths(clock.Date(u.clock.Now()), 1)
	}
	principal := in.PrincipalAmount.Round(2)
	plan, err := amortization.ComputeSchedule(principal, in.InterestRate, in.TermMonths, clock.Date(first))
	if err != nil {
		return nil, err
	}
	monthly, err := amortization.LevelPayment(principal, in.InterestRate, in.TermMonths)
	if err != nil {
		return nil, err
	}
	interest := amortization.SimpleInterest(principal, in.InterestRate, in.TermMonths)
	out := &QuoteDTO{
		MonthlyPayment: monthly,
		TotalInterest:  interest,
		TotalAmount:    principal.Add(interest),
		Installments:   make([]InstallmentDTO, 0, len(plan)),
	}
	for _, in := range plan {
		out.Installments = append(out.Installments, InstallmentDTO{Period: in.Period, DueDate: in.DueDate, Amount: in.Amount})
	}
	return out, nil
}
