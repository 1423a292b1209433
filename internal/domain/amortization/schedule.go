// Package amortization turns loan terms into a level-payment installment schedule.
//
// All arithmetic is decimal. The level payment is
//
//	payment = P * r(1+r)^n / ((1+r)^n - 1),  r = annualRatePercent / 100 / 12
//
// rounded to cents, and the final installment absorbs the rounding drift so the
// installments always sum to round(P, 2).
package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"loan-servicing-backend/internal/domain/apperr"
)

// ErrInvalidTerm is returned for a non-positive principal or term.
var ErrInvalidTerm = &apperr.ValidationError{Field: "terms", Message: "principal and term must be positive"}

const (
	currencyPlaces = 2
	// precision kept for (1+r)^n while compounding.
	factorPlaces = 24
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	// 100 (percent) * 12 (months)
	rateDivisor = decimal.NewFromInt(1200)
)

type Installment struct {
	Period  int
	DueDate time.Time
	Amount  decimal.Decimal
}

// MonthlyRate converts an annual percentage into a periodic rate.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(hundred).Div(twelve)
}

// LevelPayment returns the per-period payment rounded to cents.
func LevelPayment(principal, annualRatePercent decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validate(principal, annualRatePercent, termMonths); err != nil {
		return decimal.Zero, err
	}
	return levelPayment(principal, annualRatePercent, termMonths), nil
}

func levelPayment(principal, annualRatePercent decimal.Decimal, n int) decimal.Decimal {
	r := MonthlyRate(annualRatePercent)
	if r.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(currencyPlaces)
	}
	factor := compound(decimal.NewFromInt(1).Add(r), n)
	return principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1))).Round(currencyPlaces)
}

// compound raises base to n by repeated multiplication, bounding precision at each step.
func compound(base decimal.Decimal, n int) decimal.Decimal {
	f := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		f = f.Mul(base).Round(factorPlaces)
	}
	return f
}

// CheckTerms reports whether the terms yield a schedule whose final installment stays positive.
// Long terms at a high rate fail: the level payment carries interest, so n-1 of them can exceed the principal.
func CheckTerms(principal, annualRatePercent decimal.Decimal, termMonths int) error {
	_, _, err := split(principal, annualRatePercent, termMonths)
	return err
}

func split(principal, annualRatePercent decimal.Decimal, n int) (level, last decimal.Decimal, err error) {
	if err := validate(principal, annualRatePercent, n); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	financed := principal.Round(currencyPlaces)
	level = levelPayment(financed, annualRatePercent, n)
	last = financed.Sub(level.Mul(decimal.NewFromInt(int64(n - 1)))).Round(currencyPlaces)
	if !last.IsPositive() {
		return decimal.Zero, decimal.Zero, apperr.Validation("interest_rate",
			fmt.Sprintf("rate %s%% over %d months leaves a non-positive final installment", annualRatePercent.StringFixed(2), n))
	}
	return level, last, nil
}

// ComputeSchedule returns n installments; period k falls due on firstDueDate + (k-1) months.
func ComputeSchedule(principal, annualRatePercent decimal.Decimal, termMonths int, firstDueDate time.Time) ([]Installment, error) {
	level, last, err := split(principal, annualRatePercent, termMonths)
	if err != nil {
		return nil, err
	}

	out := make([]Installment, 0, termMonths)
	for k := 1; k <= termMonths; k++ {
		amount := level
		if k == termMonths {
			amount = last
		}
		out = append(out, Installment{
			Period:  k,
			DueDate: AddMonths(firstDueDate, k-1),
			Amount:  amount,
		})
	}
	return out, nil
}

// SimpleInterest is the flat interest quoted over the whole term: P * rate * term / 1200.
func SimpleInterest(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	return principal.Mul(annualRatePercent).Mul(decimal.NewFromInt(int64(termMonths))).Div(rateDivisor).Round(currencyPlaces)
}

// AddMonths adds whole months, clamping to the last day of the target month
// (Jan 31 + 1 month = Feb 29 in a leap year) instead of overflowing like time.AddDate.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return first.AddDate(0, 0, d-1)
}

func validate(principal, annualRatePercent decimal.Decimal, termMonths int) error {
	if termMonths <= 0 || !principal.IsPositive() {
		return ErrInvalidTerm
	}
	if annualRatePercent.IsNegative() {
		return apperr.Validation("interest_rate", "must not be negative")
	}
	return nil
}
