package http

import (
	"bytes"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	mw "loan-servicing-backend/internal/adapter/middleware"
	"loan-servicing-backend/internal/adapter/repository/mysql"
	"loan-servicing-backend/internal/domain/authz"
	"loan-servicing-backend/internal/infrastructure/storage"
	"loan-servicing-backend/internal/testutil/sqlitedb"
	"loan-servicing-backend/internal/usecase/ledger"
	"loan-servicing-backend/internal/usecase/loan"
	"loan-servicing-backend/internal/usecase/verification"
	"loan-servicing-backend/pkg/clock"
)

var (
	borrower = authz.Actor{ID: "borrower-1", Role: authz.RoleBorrower}
	stranger = authz.Actor{ID: "borrower-2", Role: authz.RoleBorrower}
	lender   = authz.Actor{ID: "lender-1", Role: authz.RoleLender}
	admin    = authz.Actor{ID: "admin-1", Role: authz.RoleAdmin}

	now = time.Date(2024, 2, 3, 14, 0, 0, 0, time.UTC)
)

const actorHeader = "X-Test-Actor"

// fakeAuth stands in for JWTAuth: the header carries "id:role".
func fakeAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id, role, ok := strings.Cut(c.Request().Header.Get(actorHeader), ":"); ok {
			mw.WithActor(c, authz.Actor{ID: id, Role: authz.Role(role)})
		}
		return next(c)
	}
}

type server struct {
	e   *echo.Echo
	dir string
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := sqlitedb.Open(t)
	dir := t.TempDir()
	store, err := storage.NewLocal(dir, verification.MaxProofSize)
	require.NoError(t, err)

	clk := clock.Fixed(now)
	loans := mysql.NewLoanRepository(db)
	pays := mysql.NewPaymentRepository(db)
	tx := mysql.NewGormUoW(db)

	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	g := e.Group("", fakeAuth)
	NewLoanHandler(loan.NewUsecase(loans, tx, clk, nil), nil).Register(g)
	NewPaymentHandler(
		ledger.NewUsecase(loans, pays, tx, clk, nil),
		verification.NewUsecase(loans, pays, tx, store, clk, nil),
		nil,
	).Register(g)
	return &server{e: e, dir: dir}
}

func (s *server) serve(req *stdhttp.Request, actor *authz.Actor) *httptest.ResponseRecorder {
	if actor != nil {
		req.Header.Set(actorHeader, actor.ID+":"+string(actor.Role))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) do(t *testing.T, actor *authz.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return s.serve(req, actor)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

// activeLoan applies, approves and activates 12000 at 12% over 12 months.
func (s *server) activeLoan(t *testing.T) string {
	t.Helper()
	rec := s.do(t, &borrower, stdhttp.MethodPost, "/loans", map[string]any{
		"type": "personal", "purpose": "tuition",
		"principal_amount": "12000", "interest_rate": "12", "term_months": 12,
	})
	requireStatus(t, rec, stdhttp.StatusCreated)
	loanID := decode[loan.LoanDTO](t, rec).LoanID

	rec = s.do(t, &lender, stdhttp.MethodPost, "/loans/"+loanID+"/approve", map[string]any{"approved_amount": "12000"})
	requireStatus(t, rec, stdhttp.StatusOK)

	rec = s.do(t, &lender, stdhttp.MethodPost, "/loans/"+loanID+"/activate", map[string]any{
		"start_date": "2024-02-03", "first_payment_date": "2024-03-03",
	})
	requireStatus(t, rec, stdhttp.StatusOK)
	return loanID
}
