package http

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-servicing-backend/internal/domain/authz"
	"loan-servicing-backend/internal/domain/proof"
	"loan-servicing-backend/internal/usecase/ledger"
	"loan-servicing-backend/internal/usecase/verification"
)

const proofField = "proof_of_payment"

type PaymentHandler struct {
	ledger *ledger.Usecase
	verify *verification.Usecase
	log    *zap.Logger
}

func NewPaymentHandler(l *ledger.Usecase, v *verification.Usecase, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{ledger: l, verify: v, log: log}
}

func (h *PaymentHandler) List(c echo.Context, a authz.Actor) error {
	out, err := h.ledger.ListPayments(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type recordPaymentReq struct {
	PaymentID      string `json:"payment_id"     validate:"omitempty,hex32"`
	Method         string `json:"payment_method" validate:"required"`
	TransactionRef string `json:"transaction_id" validate:"omitempty,max=64"`
}

func (h *PaymentHandler) Record(c echo.Context, a authz.Actor) error {
	var req recordPaymentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	out, err := h.ledger.RecordPayment(c.Request().Context(), a, ledger.RecordInput{
		LoanID:         c.Param("loan_id"),
		PaymentID:      req.PaymentID,
		Method:         req.Method,
		TransactionRef: req.TransactionRef,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type submitPaymentReq struct {
	Amount string `form:"amount"         validate:"required,numeric,dec2"`
	Method string `form:"payment_method" validate:"required"`
}

// Submit accepts a multipart form with amount, payment_method and the proof_of_payment file.
func (h *PaymentHandler) Submit(c echo.Context, a authz.Actor) error {
	var req submitPaymentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	fh, err := c.FormFile(proofField)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: proofField, Message: "is required"}},
		})
	}
	if fh.Size > verification.MaxProofSize {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: proofField, Message: "must not exceed 10 MiB"}},
		})
	}
	obj, closeFn, err := openProof(fh)
	if err != nil {
		return writeError(c, h.log, err)
	}
	defer closeFn()

	out, err := h.verify.Submit(c.Request().Context(), a, verification.SubmitInput{
		LoanID: c.Param("loan_id"),
		Amount: decimal.RequireFromString(req.Amount),
		Method: req.Method,
		Proof:  obj,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// openProof sniffs the content type from the first bytes rather than trusting the client header.
func openProof(fh *multipart.FileHeader) (proof.Object, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return proof.Object{}, nil, err
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return proof.Object{}, nil, err
	}
	head = head[:n]
	return proof.Object{
		Name:        fh.Filename,
		ContentType: http.DetectContentType(head),
		Size:        fh.Size,
		Body:        io.MultiReader(bytes.NewReader(head), f),
	}, func() { _ = f.Close() }, nil
}

type verifyReq struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason" validate:"max=500"`
}

func (h *PaymentHandler) Verify(c echo.Context, a authz.Actor) error {
	var req verifyReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	paymentID := c.Param("payment_id")
	if req.Action == "approve" {
		out, err := h.verify.Approve(ctx, a, paymentID)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, out)
	}
	out, err := h.verify.Reject(ctx, a, paymentID, req.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) Proof(c echo.Context, a authz.Actor) error {
	rc, err := h.verify.OpenProof(c.Request().Context(), a, c.Param("payment_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	defer rc.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(rc, head)
	return c.Stream(http.StatusOK, http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), rc))
}

type upcomingReq struct {
	Days int `query:"days" validate:"omitempty,gte=1,lte=365"`
}

func (h *PaymentHandler) Upcoming(c echo.Context, a authz.Actor) error {
	var req upcomingReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	out, err := h.ledger.Upcoming(c.Request().Context(), a, req.Days)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AwaitingVerification lists submissions waiting for a verifier across all loans.
func (h *PaymentHandler) AwaitingVerification(c echo.Context, a authz.Actor) error {
	out, err := h.ledger.AwaitingVerification(c.Request().Context(), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) Overdue(c echo.Context, a authz.Actor) error {
	out, err := h.ledger.Overdue(c.Request().Context(), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
