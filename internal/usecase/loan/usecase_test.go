package loan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-servicing-backend/internal/adapter/repository/mysql"
	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/authz"
	domain "loan-servicing-backend/internal/domain/loan"
	"loan-servicing-backend/internal/domain/payment"
	"loan-servicing-backend/internal/domain/uow"
	"loan-servicing-backend/internal/testutil/loanmock"
	"loan-servicing-backend/internal/testutil/paymentmock"
	"loan-servicing-backend/internal/testutil/sqlitedb"
	"loan-servicing-backend/internal/testutil/uowmock"
	"loan-servicing-backend/pkg/clock"
)

var (
	now      = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	borrower = authz.Actor{ID: "borrower-1", Role: authz.RoleBorrower}
	lender   = authz.Actor{ID: "lender-1", Role: authz.RoleLender}
	admin    = authz.Actor{ID: "admin-1", Role: authz.RoleAdmin}
	officer  = authz.Actor{ID: "officer-1", Role: authz.RoleLoanOfficer}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validApply() ApplyInput {
	return ApplyInput{
		Type:            "personal",
		Purpose:         "home renovation",
		PrincipalAmount: dec("12000"),
		InterestRate:    dec("12"),
		TermMonths:      12,
	}
}

// ----- mock-backed -----

func TestApply_Success(t *testing.T) {
	var saved *domain.Loan
	loans := &loanmock.Repo{
		CreateFn: func(_ context.Context, l *domain.Loan) error {
			saved = l
			l.ID = 1
			return nil
		},
	}
	uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans, Payments: &paymentmock.Repo{}}), clock.Fixed(now), nil)

	dto, err := uc.Apply(context.Background(), borrower, validApply())
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Len(t, dto.LoanID, 32)
	assert.True(t, strings.HasPrefix(dto.LoanNumber, "LN-"), dto.LoanNumber)
	assert.Equal(t, borrower.ID, dto.BorrowerID)
	assert.Equal(t, string(domain.StatusPending), dto.Status)
	assert.Equal(t, "13440.00", dto.TotalAmount.StringFixed(2))
	assert.True(t, dto.OutstandingBalance.IsZero())
	assert.Nil(t, dto.ApprovedAmount)
	assert.False(t, saved.ApprovedAmount.Valid)
}

func TestApply_Validation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*ApplyInput)
		field string
	}{
		{"missing type", func(in *ApplyInput) { in.Type = " " }, "type"},
		{"missing purpose", func(in *ApplyInput) { in.Purpose = "" }, "purpose"},
		{"zero principal", func(in *ApplyInput) { in.PrincipalAmount = decimal.Zero }, "principal_amount"},
		{"negative principal", func(in *ApplyInput) { in.PrincipalAmount = dec("-1") }, "principal_amount"},
		{"negative rate", func(in *ApplyInput) { in.InterestRate = dec("-0.01") }, "interest_rate"},
		{"rate above 100", func(in *ApplyInput) { in.InterestRate = dec("100.01") }, "interest_rate"},
		{"zero term", func(in *ApplyInput) { in.TermMonths = 0 }, "term_months"},
		{"term too long", func(in *ApplyInput) { in.TermMonths = 361 }, "term_months"},
		{"final installment not positive", func(in *ApplyInput) { in.TermMonths = 24 }, "interest_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewUsecase(&loanmock.Repo{
				CreateFn: func(context.Context, *domain.Loan) error {
					t.Fatalf("Create must not be called on invalid input")
					return nil
				},
			}, uowmock.New(), clock.Fixed(now), nil)

			in := validApply()
			tt.mut(&in)
			_, err := uc.Apply(context.Background(), borrower, in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestApply_OnlyBorrowers(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, uowmock.New(), clock.Fixed(now), nil)
	for _, a := range []authz.Actor{lender, admin, officer} {
		_, err := uc.Apply(context.Background(), a, validApply())
		require.ErrorIs(t, err, apperr.ErrForbidden, string(a.Role))
	}
}

func TestActivate_ScheduleFailureLeavesLoanUnsaved(t *testing.T) {
	first := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	approvedLoan := func() *domain.Loan {
		l := &domain.Loan{ID: 5, LoanID: "L5", BorrowerID: borrower.ID, PrincipalAmount: dec("1000"),
			InterestRate: dec("0"), TermMonths: 3, Status: domain.StatusPending}
		require.NoError(t, l.Approve(domain.Approval{Amount: dec("1000"), LenderID: lender.ID}, now))
		return l
	}
	boom := errors.New("insert failed")
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { return approvedLoan(), nil },
		SaveFn: func(context.Context, *domain.Loan) error {
			t.Fatalf("loan must not be saved when the schedule insert fails")
			return nil
		},
	}
	pays := &paymentmock.Repo{
		CreateBatchFn: func(context.Context, []payment.Payment) error { return boom },
	}
	uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans, Payments: pays}), clock.Fixed(now), nil)

	_, err := uc.Activate(context.Background(), lender, "L5", ActivateInput{StartDate: now, FirstPaymentDate: first})
	require.ErrorIs(t, err, boom)
}

func TestApprove_LenderAssignment(t *testing.T) {
	tests := []struct {
		name       string
		actor      authz.Actor
		in         ApproveInput
		wantLender string
	}{
		{"lender claims the loan", lender, ApproveInput{ApprovedAmount: dec("9000"), LenderID: "someone-else"}, lender.ID},
		{"admin assigns a lender", admin, ApproveInput{ApprovedAmount: dec("9000"), LenderID: "lender-9"}, "lender-9"},
		{"admin without lender self-assigns", admin, ApproveInput{ApprovedAmount: dec("9000")}, admin.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *domain.Loan
			loans := &loanmock.Repo{
				GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) {
					return &domain.Loan{ID: 1, LoanID: "L1", BorrowerID: borrower.ID, PrincipalAmount: dec("10000"),
						InterestRate: dec("10"), TermMonths: 12, TotalAmount: dec("11000"), Status: domain.StatusPending}, nil
				},
				SaveFn: func(_ context.Context, l *domain.Loan) error { saved = l; return nil },
			}
			uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans, Payments: &paymentmock.Repo{}}), clock.Fixed(now), nil)

			dto, err := uc.Approve(context.Background(), tt.actor, "L1", tt.in)
			require.NoError(t, err)
			require.NotNil(t, saved)
			require.NotNil(t, dto.LenderID)
			assert.Equal(t, tt.wantLender, *dto.LenderID)
			assert.Equal(t, "9000.00", dto.ApprovedAmount.StringFixed(2))
			// rate not overridden: quoted total untouched
			assert.Equal(t, "11000.00", dto.TotalAmount.StringFixed(2))
			assert.Equal(t, now, *dto.ApprovedAt)
		})
	}
}

func TestApprove_Errors(t *testing.T) {
	loanIn := func(st domain.Status) *loanmock.Repo {
		return &loanmock.Repo{
			GetByLoanIDForUpdateFn: func(_ context.Context, id string) (*domain.Loan, error) {
				if id == "missing" {
					return nil, apperr.NotFound("loan", id)
				}
				return &domain.Loan{ID: 1, LoanID: id, BorrowerID: borrower.ID, PrincipalAmount: dec("100"),
					InterestRate: dec("5"), TermMonths: 6, Status: st}, nil
			},
			SaveFn: func(context.Context, *domain.Loan) error {
				t.Fatalf("Save must not be called")
				return nil
			},
		}
	}
	rate := dec("120")
	tests := []struct {
		name    string
		actor   authz.Actor
		loanID  string
		status  domain.Status
		in      ApproveInput
		wantErr error
	}{
		{"not found", lender, "missing", domain.StatusPending, ApproveInput{ApprovedAmount: dec("1")}, apperr.ErrNotFound},
		{"borrower forbidden", borrower, "L1", domain.StatusPending, ApproveInput{ApprovedAmount: dec("1")}, apperr.ErrForbidden},
		{"officer forbidden", officer, "L1", domain.StatusPending, ApproveInput{ApprovedAmount: dec("1")}, apperr.ErrForbidden},
		{"already approved", lender, "L1", domain.StatusApproved, ApproveInput{ApprovedAmount: dec("1")}, apperr.ErrInvalidTransition},
		{"rejected loan", lender, "L1", domain.StatusRejected, ApproveInput{ApprovedAmount: dec("1")}, apperr.ErrInvalidTransition},
		{"negative amount", lender, "L1", domain.StatusPending, ApproveInput{ApprovedAmount: dec("-5")}, apperr.ErrValidation},
		{"rate above 100", lender, "L1", domain.StatusPending, ApproveInput{ApprovedAmount: dec("1"), InterestRate: &rate}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loans := loanIn(tt.status)
			uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans, Payments: &paymentmock.Repo{}}), clock.Fixed(now), nil)
			_, err := uc.Approve(context.Background(), tt.actor, tt.loanID, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuoteSchedule(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, uowmock.New(), clock.Fixed(now), nil)

	q, err := uc.QuoteSchedule(QuoteInput{PrincipalAmount: dec("1000"), InterestRate: decimal.Zero, TermMonths: 3})
	require.NoError(t, err)
	require.Len(t, q.Installments, 3)
	assert.Equal(t, "333.33", q.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "333.34", q.Installments[2].Amount.StringFixed(2))
	// defaults to one month from today
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), q.Installments[0].DueDate)
	assert.True(t, q.TotalInterest.IsZero())

	_, err = uc.QuoteSchedule(QuoteInput{PrincipalAmount: dec("1000"), TermMonths: 0})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

// ----- sqlite-backed -----

type fixture struct {
	uc       *Usecase
	loans    *mysql.LoanRepository
	payments *mysql.PaymentRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := sqlitedb.Open(t)
	loans := mysql.NewLoanRepository(db)
	return &fixture{
		uc:       NewUsecase(loans, mysql.NewGormUoW(db), clock.Fixed(now), nil),
		loans:    loans,
		payments: mysql.NewPaymentRepository(db),
	}
}

func (f *fixture) approved(t *testing.T) *LoanDTO {
	t.Helper()
	ctx := context.Background()
	applied, err := f.uc.Apply(ctx, borrower, validApply())
	require.NoError(t, err)
	dto, err := f.uc.Approve(ctx, lender, applied.LoanID, ApproveInput{ApprovedAmount: dec("12000")})
	require.NoError(t, err)
	return dto
}

func (f *fixture) rows(t *testing.T, loanID string) []payment.Payment {
	t.Helper()
	l, err := f.loans.GetByLoanID(context.Background(), loanID)
	require.NoError(t, err)
	ps, err := f.payments.ListByLoan(context.Background(), l.ID)
	require.NoError(t, err)
	return ps
}

var activation = ActivateInput{
	StartDate:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	FirstPaymentDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
}

func TestLifecycle_ApplyApproveActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ap := f.approved(t)
	assert.Equal(t, string(domain.StatusApproved), ap.Status)
	assert.Empty(t, f.rows(t, ap.LoanID), "approval must not create payment rows")

	act, err := f.uc.Activate(ctx, lender, ap.LoanID, activation)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusActive), act.Status)
	assert.Equal(t, "13440.00", act.OutstandingBalance.StringFixed(2))
	assert.Equal(t, activation.StartDate, *act.DisbursementDate)

	rows := f.rows(t, ap.LoanID)
	require.Len(t, rows, 12)
	sum := decimal.Zero
	for i, p := range rows {
		assert.Equal(t, i+1, p.Period)
		assert.Equal(t, payment.StatusPending, p.Status)
		assert.Equal(t, payment.SourceSchedule, p.Source)
		sum = sum.Add(p.Amount)
	}
	assert.Equal(t, "12000.00", sum.StringFixed(2))
	assert.True(t, rows[0].DueDate.Equal(activation.FirstPaymentDate), rows[0].DueDate)
	assert.True(t, rows[11].DueDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), rows[11].DueDate)

	// second activation is refused and leaves exactly one schedule
	_, err = f.uc.Activate(ctx, lender, ap.LoanID, activation)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.ErrorIs(t, err, domain.ErrOnlyApprovedActivate)
	assert.Len(t, f.rows(t, ap.LoanID), 12)
}

func TestActivate_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.uc.Apply(ctx, borrower, validApply())
	require.NoError(t, err)
	_, err = f.uc.Activate(ctx, lender, pending.LoanID, activation)
	require.ErrorIs(t, err, domain.ErrOnlyApprovedActivate)

	ap := f.approved(t)
	_, err = f.uc.Activate(ctx, borrower, ap.LoanID, activation)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.uc.Activate(ctx, lender, ap.LoanID, ActivateInput{
		StartDate:        activation.FirstPaymentDate,
		FirstPaymentDate: activation.StartDate,
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.uc.Get(ctx, lender, ap.LoanID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusApproved), got.Status)
	assert.Empty(t, f.rows(t, ap.LoanID))

	_, err = f.uc.Activate(ctx, lender, "missing", activation)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRegenerateSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ap := f.approved(t)
	_, err := f.uc.RegenerateSchedule(ctx, lender, ap.LoanID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition, "only active loans have a schedule to rebuild")

	_, err = f.uc.Activate(ctx, lender, ap.LoanID, activation)
	require.NoError(t, err)
	before := f.rows(t, ap.LoanID)

	dto, err := f.uc.RegenerateSchedule(ctx, admin, ap.LoanID)
	require.NoError(t, err)
	after := f.rows(t, ap.LoanID)
	require.Len(t, after, len(before))
	assert.Len(t, dto.Schedule, len(before))
	assert.NotEqual(t, before[0].PaymentID, after[0].PaymentID)

	// once money has moved the schedule is frozen
	first := after[0]
	require.NoError(t, first.MarkPaid("check", "TXN-1", now))
	require.NoError(t, f.payments.Save(ctx, &first))

	_, err = f.uc.RegenerateSchedule(ctx, lender, ap.LoanID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, f.rows(t, ap.LoanID), 12)
}

func TestTermsMustBeSchedulable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	long := validApply()
	long.TermMonths = 24
	_, err := f.uc.Apply(ctx, borrower, long)
	require.ErrorIs(t, err, apperr.ErrValidation)

	applied, err := f.uc.Apply(ctx, borrower, validApply())
	require.NoError(t, err)

	high := dec("30")
	_, err = f.uc.Approve(ctx, lender, applied.LoanID, ApproveInput{ApprovedAmount: dec("12000"), InterestRate: &high})
	require.ErrorIs(t, err, apperr.ErrValidation)
	got, err := f.uc.Get(ctx, borrower, applied.LoanID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), got.Status)
	assert.Equal(t, "12.00", got.InterestRate.StringFixed(2))

	// whatever reaches approved can be activated
	ap, err := f.uc.Approve(ctx, lender, applied.LoanID, ApproveInput{ApprovedAmount: dec("12000")})
	require.NoError(t, err)
	act, err := f.uc.Activate(ctx, lender, ap.LoanID, activation)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusActive), act.Status)
}

func TestRejectAndDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	applied, err := f.uc.Apply(ctx, borrower, validApply())
	require.NoError(t, err)

	_, err = f.uc.Reject(ctx, lender, applied.LoanID, "  ")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.uc.Reject(ctx, lender, applied.LoanID, strings.Repeat("x", 501))
	require.ErrorIs(t, err, apperr.ErrValidation)

	rej, err := f.uc.Reject(ctx, lender, applied.LoanID, "insufficient income")
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusRejected), rej.Status)
	assert.Equal(t, "insufficient income", rej.RejectionReason)
	_, err = f.uc.Approve(ctx, lender, applied.LoanID, ApproveInput{ApprovedAmount: dec("1")})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	ap := f.approved(t)
	_, err = f.uc.MarkDefaulted(ctx, admin, ap.LoanID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition, "approved loans cannot default")

	_, err = f.uc.Activate(ctx, lender, ap.LoanID, activation)
	require.NoError(t, err)
	_, err = f.uc.MarkDefaulted(ctx, lender, ap.LoanID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	def, err := f.uc.MarkDefaulted(ctx, admin, ap.LoanID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusDefaulted), def.Status)
	require.NotNil(t, def.DefaultedAt)
}

func TestGet_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	applied, err := f.uc.Apply(ctx, borrower, validApply())
	require.NoError(t, err)

	_, err = f.uc.Get(ctx, borrower, applied.LoanID)
	require.NoError(t, err)
	_, err = f.uc.Get(ctx, authz.Actor{ID: "borrower-2", Role: authz.RoleBorrower}, applied.LoanID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.uc.Get(ctx, officer, applied.LoanID)
	require.ErrorIs(t, err, apperr.ErrForbidden, "officer not yet assigned")

	_, err = f.uc.Approve(ctx, admin, applied.LoanID, ApproveInput{ApprovedAmount: dec("12000"), LoanOfficerID: officer.ID})
	require.NoError(t, err)
	got, err := f.uc.Get(ctx, officer, applied.LoanID)
	require.NoError(t, err)
	assert.Equal(t, officer.ID, *got.LoanOfficerID)

	_, err = f.uc.Get(ctx, lender, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
