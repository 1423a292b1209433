package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/authz"
	"loan-servicing-backend/internal/usecase/loan"
)

const dateLayout = "2006-01-02"

type LoanHandler struct {
	uc  *loan.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *zap.Logger) *LoanHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanHandler{uc: uc, log: log}
}

type applyLoanReq struct {
	Type             string          `json:"type"              validate:"required,max=50"`
	Purpose          string          `json:"purpose"           validate:"required,max=255"`
	EmploymentStatus string          `json:"employment_status" validate:"omitempty,max=50"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount"  validate:"dec2,gtdec=0"`
	InterestRate     decimal.Decimal `json:"interest_rate"     validate:"dec2,gtedec=0,ltedec=100"`
	TermMonths       int             `json:"term_months"       validate:"required,gte=1,lte=360"`
}

func (h *LoanHandler) Apply(c echo.Context, a authz.Actor) error {
	var req applyLoanReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Apply(c.Request().Context(), a, loan.ApplyInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type quoteReq struct {
	PrincipalAmount string `query:"principal_amount" validate:"required,numeric,dec2,gtdec=0"`
	InterestRate    string `query:"interest_rate"    validate:"required,numeric,dec2,gtedec=0,ltedec=100"`
	TermMonths      int    `query:"term_months"      validate:"required,gte=1,lte=360"`
	FirstDueDate    string `query:"first_due_date"   validate:"omitempty,datetime=2006-01-02"`
}

func (h *LoanHandler) Quote(c echo.Context, _ authz.Actor) error {
	var req quoteReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	// already validated as numeric
	in := loan.QuoteInput{
		PrincipalAmount: decimal.RequireFromString(req.PrincipalAmount),
		InterestRate:    decimal.RequireFromString(req.InterestRate),
		TermMonths:      req.TermMonths,
	}
	if req.FirstDueDate != "" {
		in.FirstDueDate, _ = time.Parse(dateLayout, req.FirstDueDate)
	}
	dto, err := h.uc.QuoteSchedule(in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Get(c echo.Context, a authz.Actor) error {
	dto, err := h.uc.Get(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type approveLoanReq struct {
	ApprovedAmount decimal.Decimal  `json:"approved_amount" validate:"dec2,gtedec=0"`
	InterestRate   *decimal.Decimal `json:"interest_rate"   validate:"omitempty,dec2,gtedec=0,ltedec=100"`
	LenderID       string           `json:"lender_id"       validate:"omitempty,max=64"`
	LoanOfficerID  string           `json:"loan_officer_id" validate:"omitempty,max=64"`
}

func (h *LoanHandler) Approve(c echo.Context, a authz.Actor) error {
	var req approveLoanReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Approve(c.Request().Context(), a, c.Param("loan_id"), loan.ApproveInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type rejectReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *LoanHandler) Reject(c echo.Context, a authz.Actor) error {
	var req rejectReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Reject(c.Request().Context(), a, c.Param("loan_id"), req.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type activateReq struct {
	StartDate        string `json:"start_date"         validate:"required,datetime=2006-01-02"`
	FirstPaymentDate string `json:"first_payment_date" validate:"required,datetime=2006-01-02"`
}

func (h *LoanHandler) Activate(c echo.Context, a authz.Actor) error {
	var req activateReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	// layouts were checked by the validator
	start, _ := time.Parse(dateLayout, req.StartDate)
	first, _ := time.Parse(dateLayout, req.FirstPaymentDate)
	dto, err := h.uc.Activate(c.Request().Context(), a, c.Param("loan_id"), loan.ActivateInput{
		StartDate:        start,
		FirstPaymentDate: first,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) RegenerateSchedule(c echo.Context, a authz.Actor) error {
	dto, err := h.uc.RegenerateSchedule(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) MarkDefaulted(c echo.Context, a authz.Actor) error {
	dto, err := h.uc.MarkDefaulted(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
