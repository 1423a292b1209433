package verification

import (
	"github.com/shopspring/decimal"

	"loan-servicing-backend/internal/domain/proof"
)

// MaxProofSize caps an uploaded proof of payment at 10 MiB.
const MaxProofSize = 10 << 20

type SubmitInput struct {
	LoanID string
	Amount decimal.Decimal
	Method string
	Proof  proof.Object
}
