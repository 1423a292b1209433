package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-servicing-backend/internal/domain/apperr"
)

var now = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func TestMarkPaid(t *testing.T) {
	p := &Payment{PaymentID: "p1", Status: StatusPending, Amount: decimal.NewFromInt(100)}
	require.ErrorIs(t, p.MarkPaid(" ", "TXN-1", now), apperr.ErrValidation)
	assert.Equal(t, StatusPending, p.Status)

	require.NoError(t, p.MarkPaid("bank_transfer", "TXN-1", now))
	assert.Equal(t, StatusPaid, p.Status)
	assert.Equal(t, now, *p.PaidDate)
	assert.Equal(t, "TXN-1", p.TransactionID)
	assert.Nil(t, p.VerifiedBy)

	require.ErrorIs(t, p.MarkPaid("check", "", now), apperr.ErrInvalidTransition)
}

func TestMarkPaid_RejectsNonPendingSources(t *testing.T) {
	for _, s := range []Status{StatusPaid, StatusAwaitingVerification, StatusRejected} {
		p := &Payment{Status: s}
		require.ErrorIs(t, p.MarkPaid("check", "", now), apperr.ErrInvalidTransition, "from %s", s)
	}
}

func TestMarkVerified(t *testing.T) {
	p := &Payment{PaymentID: "p2", Status: StatusAwaitingVerification}
	require.NoError(t, p.MarkVerified("staff-1", now))
	assert.Equal(t, StatusPaid, p.Status)
	assert.Equal(t, "staff-1", *p.VerifiedBy)
	assert.Equal(t, now, *p.VerifiedAt)
	assert.Equal(t, now, *p.PaidDate)

	err := p.MarkVerified("staff-2", now)
	require.ErrorIs(t, err, ErrNotAwaitingVerification)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, "staff-1", *p.VerifiedBy)
}

func TestMarkRejected(t *testing.T) {
	p := &Payment{PaymentID: "p3", Status: StatusAwaitingVerification}
	require.NoError(t, p.MarkRejected("", "staff-1", now))
	assert.Equal(t, StatusRejected, p.Status)
	assert.Equal(t, "Rejected by staff", p.RejectionReason)
	assert.Nil(t, p.PaidDate)

	err := p.MarkRejected("blurry", "staff-1", now)
	var te *apperr.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "rejected", te.From)
	require.ErrorIs(t, (&Payment{Status: StatusPending}).MarkRejected("x", "s", now), ErrNotAwaitingVerification)
}

func TestLateFee(t *testing.T) {
	today := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	small := &Payment{Status: StatusPending, Amount: decimal.NewFromInt(100), DueDate: due}
	assert.Equal(t, "25.00", small.LateFeeAt(today).StringFixed(2))
	assert.Equal(t, 10, small.DaysOverdueAt(today))

	big := &Payment{Status: StatusPending, Amount: decimal.RequireFromString("1066.19"), DueDate: due}
	assert.Equal(t, "53.31", big.LateFeeAt(today).StringFixed(2))

	notDue := &Payment{Status: StatusPending, Amount: decimal.NewFromInt(100), DueDate: today}
	assert.True(t, notDue.LateFeeAt(today).IsZero())
	assert.Equal(t, 0, notDue.DaysOverdueAt(today))

	paid := &Payment{Status: StatusPaid, Amount: decimal.NewFromInt(100), DueDate: due}
	assert.False(t, paid.IsOverdue(today))

	awaiting := &Payment{Status: StatusAwaitingVerification, Amount: decimal.NewFromInt(100), DueDate: due}
	assert.False(t, awaiting.IsOverdue(today))
}

func TestValidMethod(t *testing.T) {
	assert.True(t, ValidMethod("check", RecordMethods))
	assert.False(t, ValidMethod("ewallet", RecordMethods))
	assert.True(t, ValidMethod("ewallet", SubmissionMethods))
}
