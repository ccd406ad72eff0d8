package services

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
)

// aprMaxIterations bounds the Newton-Raphson root finder. If the rate has
// not converged by then the last approximation is returned; the finder
// must never loop indefinitely.
const aprMaxIterations = 50

// aprRelTolerance is the relative stopping criterion for the APR solver
const aprRelTolerance = 1e-4

var (
	twelveHundred = decimal.NewFromInt(1200)
	one           = decimal.NewFromInt(1)
)

// InterestService computes interest, payment amounts and amortization
// schedules. It is stateless; every method is a pure function of its
// inputs and safe for concurrent use.
type InterestService struct{}

// NewInterestService creates a new interest service
func NewInterestService() *InterestService {
	return &InterestService{}
}

// MonthlyPayment returns the level monthly payment for a fully amortizing
// loan: M = P*r(1+r)^n / ((1+r)^n - 1) with r the monthly rate. A zero
// rate degenerates to principal/months.
// The result is unrounded; round only at presentation boundaries.
func (s *InterestService) MonthlyPayment(principal decimal.Decimal, annualRate float64, months int) (decimal.Decimal, error) {
	if err := validateTerms(principal, annualRate, months); err != nil {
		return decimal.Zero, err
	}

	n := decimal.NewFromInt(int64(months))
	if annualRate == 0 {
		return principal.Div(n), nil
	}

	r := decimal.NewFromFloat(annualRate).Div(twelveHundred)
	compound := one.Add(r).Pow(n)
	numerator := principal.Mul(r).Mul(compound)
	denominator := compound.Sub(one)
	return numerator.Div(denominator), nil
}

// ReducingBalanceInterest returns one period's interest on the balance
// outstanding at the start of that period
func (s *InterestService) ReducingBalanceInterest(balance decimal.Decimal, annualRate float64) (decimal.Decimal, error) {
	if annualRate < 0 {
		return decimal.Zero, fmt.Errorf("%w: annual rate must not be negative", ErrInvalidArgument)
	}
	if balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: balance must not be negative", ErrInvalidArgument)
	}
	return balance.Mul(decimal.NewFromFloat(annualRate)).Div(twelveHundred), nil
}

// FlatRateInterest returns the total interest over the whole term under
// the flat convention: principal * rate * months / 12 / 100. Divide by
// months for the even per-period share.
func (s *InterestService) FlatRateInterest(principal decimal.Decimal, annualRate float64, months int) (decimal.Decimal, error) {
	if err := validateTerms(principal, annualRate, months); err != nil {
		return decimal.Zero, err
	}
	return principal.
		Mul(decimal.NewFromFloat(annualRate)).
		Mul(decimal.NewFromInt(int64(months))).
		Div(twelveHundred), nil
}

// GenerateSchedule builds the full amortization schedule for the given
// terms under the selected interest convention.
//
// All monetary figures are rounded half-up to 2 decimals at row emission
// only, never mid-calculation. The emitted principal portion of each row
// is the difference between successive rounded balances, so the portions
// telescope: they sum exactly to the original principal and the final
// row's balance is exactly zero.
func (s *InterestService) GenerateSchedule(principal decimal.Decimal, annualRate float64, months int, startDate time.Time, convention string) ([]models.ScheduleEntry, error) {
	if err := validateTerms(principal, annualRate, months); err != nil {
		return nil, err
	}
	if !models.ValidConvention(convention) {
		return nil, fmt.Errorf("%w: unknown interest convention %q", ErrInvalidArgument, convention)
	}

	n := decimal.NewFromInt(int64(months))
	rate := decimal.NewFromFloat(annualRate)

	var levelPayment decimal.Decimal
	if convention == models.ConventionReducingBalance {
		var err error
		levelPayment, err = s.MonthlyPayment(principal, annualRate, months)
		if err != nil {
			return nil, err
		}
	}

	// Flat convention spreads total interest evenly; the other two
	// recompute interest each period on the pre-reduction balance.
	var flatShare decimal.Decimal
	if convention == models.ConventionFlatRate {
		total, err := s.FlatRateInterest(principal, annualRate, months)
		if err != nil {
			return nil, err
		}
		flatShare = total.Div(n)
	}
	evenPrincipal := principal.Div(n)

	entries := make([]models.ScheduleEntry, 0, months)
	balance := principal
	cumulative := decimal.Zero
	prevRounded := principal.Round(2)

	for period := 1; period <= months; period++ {
		var interest decimal.Decimal
		var principalPart decimal.Decimal

		switch convention {
		case models.ConventionReducingBalance:
			interest = balance.Mul(rate).Div(twelveHundred)
			principalPart = levelPayment.Sub(interest)
		case models.ConventionFlatRate:
			interest = flatShare
			principalPart = evenPrincipal
		case models.ConventionDecliningBalance:
			interest = balance.Mul(rate).Div(twelveHundred)
			principalPart = evenPrincipal
		}

		// Cap the final period (or a rounding overshoot) at the
		// remaining balance so the schedule lands on exactly zero.
		if period == months || principalPart.GreaterThan(balance) {
			principalPart = balance
		}

		balance = balance.Sub(principalPart)
		newRounded := balance.Round(2)

		emittedInterest := interest.Round(2)
		emittedPrincipal := prevRounded.Sub(newRounded)
		cumulative = cumulative.Add(emittedInterest)

		entries = append(entries, models.ScheduleEntry{
			Number:             period,
			DueDate:            startDate.AddDate(0, period, 0),
			Principal:          emittedPrincipal,
			Interest:           emittedInterest,
			Payment:            emittedPrincipal.Add(emittedInterest),
			Balance:            newRounded,
			CumulativeInterest: cumulative,
		})
		prevRounded = newRounded
	}

	return entries, nil
}

// CalculateAPR solves for the annualized rate (percent) that equates the
// discounted payment stream with the net amount advanced (principal less
// upfront fees). Newton-Raphson, bounded to aprMaxIterations with a
// relative stopping criterion; on non-convergence the last approximation
// is returned rather than an error.
func (s *InterestService) CalculateAPR(principal, fees, monthlyPayment decimal.Decimal, months int) (float64, error) {
	if !principal.IsPositive() {
		return 0, fmt.Errorf("%w: principal must be positive", ErrInvalidArgument)
	}
	if months <= 0 {
		return 0, fmt.Errorf("%w: months must be positive", ErrInvalidArgument)
	}
	if fees.IsNegative() {
		return 0, fmt.Errorf("%w: fees must not be negative", ErrInvalidArgument)
	}
	if !monthlyPayment.IsPositive() {
		return 0, fmt.Errorf("%w: monthly payment must be positive", ErrInvalidArgument)
	}
	net := principal.Sub(fees)
	if !net.IsPositive() {
		return 0, fmt.Errorf("%w: fees must be less than principal", ErrInvalidArgument)
	}

	// Rates are plain ratios, not money; float64 is the right tool for
	// the root finder.
	netF, _ := net.Float64()
	payF, _ := monthlyPayment.Float64()
	n := float64(months)

	// No cost of credit at all: rate is zero by construction.
	if payF*n <= netF {
		return 0, nil
	}

	// Initial guess from the flat-rate approximation.
	r := 2 * (payF*n - netF) / (netF * (n + 1))
	if r <= 0 {
		r = 1e-4
	}

	for i := 0; i < aprMaxIterations; i++ {
		f := presentValue(payF, r, n) - netF
		fp := presentValueDerivative(payF, r, n)
		if fp == 0 {
			break
		}
		next := r - f/fp
		if next <= 0 {
			next = r / 2
		}
		if math.Abs(next-r) <= aprRelTolerance*math.Max(math.Abs(next), aprRelTolerance) {
			r = next
			break
		}
		r = next
	}

	return r * 12 * 100, nil
}

// presentValue is the discounted value of a level payment annuity at
// monthly rate r over n periods
func presentValue(payment, r, n float64) float64 {
	if math.Abs(r) < 1e-9 {
		return payment * n
	}
	return payment * (1 - math.Pow(1+r, -n)) / r
}

func presentValueDerivative(payment, r, n float64) float64 {
	if math.Abs(r) < 1e-9 {
		return -payment * n * (n + 1) / 2
	}
	a := (1 - math.Pow(1+r, -n)) / r
	return payment * (n*math.Pow(1+r, -n-1)/r - a/r)
}

// validateTerms rejects out-of-range loan terms. Missing or malformed
// financial inputs fail fast here; they are never defaulted to zero.
func validateTerms(principal decimal.Decimal, annualRate float64, months int) error {
	if !principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidArgument)
	}
	if annualRate < 0 {
		return fmt.Errorf("%w: annual rate must not be negative", ErrInvalidArgument)
	}
	if months <= 0 {
		return fmt.Errorf("%w: months must be positive", ErrInvalidArgument)
	}
	return nil
}
