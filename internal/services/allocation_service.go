package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
)

// Obligations holds a loan's open dues at allocation time
type Obligations struct {
	Penalties decimal.Decimal
	Fees      decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
}

// AllocationService splits one payment amount across obligation buckets.
// The walk is greedy and order-sensitive: the bucket order is part of the
// organisation's configurable policy, not a constant.
type AllocationService struct {
	order []models.AllocationBucket
}

// NewAllocationService creates an allocation service with the given
// default bucket order. An empty order falls back to the reference
// waterfall (penalties, fees, interest, principal).
func NewAllocationService(order []models.AllocationBucket) *AllocationService {
	if len(order) == 0 {
		order = models.DefaultAllocationOrder()
	}
	return &AllocationService{order: order}
}

// Order returns the service's default bucket order
func (s *AllocationService) Order() []models.AllocationBucket {
	return s.order
}

// Allocate walks the bucket order, giving each bucket min(remaining, due)
// until the amount is exhausted. When the amount exceeds the total dues
// the excess is surfaced in Unallocated, never silently dropped; treating
// it as a prepayment or credit is the caller's decision.
func (s *AllocationService) Allocate(amount decimal.Decimal, due Obligations, order []models.AllocationBucket) (models.RepaymentAllocation, error) {
	var alloc models.RepaymentAllocation
	if !amount.IsPositive() {
		return alloc, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	for _, d := range []decimal.Decimal{due.Penalties, due.Fees, due.Interest, due.Principal} {
		if d.IsNegative() {
			return alloc, fmt.Errorf("%w: obligations must not be negative", ErrInvalidArgument)
		}
	}
	if len(order) == 0 {
		order = s.order
	}

	alloc = models.RepaymentAllocation{
		Penalties: decimal.Zero,
		Fees:      decimal.Zero,
		Interest:  decimal.Zero,
		Principal: decimal.Zero,
	}

	remaining := amount
	for _, bucket := range order {
		if !remaining.IsPositive() {
			break
		}

		var target *decimal.Decimal
		var owed decimal.Decimal
		switch bucket {
		case models.BucketPenalties:
			target, owed = &alloc.Penalties, due.Penalties
		case models.BucketFees:
			target, owed = &alloc.Fees, due.Fees
		case models.BucketInterest:
			target, owed = &alloc.Interest, due.Interest
		case models.BucketPrincipal:
			target, owed = &alloc.Principal, due.Principal
		default:
			return models.RepaymentAllocation{}, fmt.Errorf("%w: unknown allocation bucket %q", ErrInvalidArgument, bucket)
		}

		take := decimal.Min(remaining, owed)
		*target = take
		remaining = remaining.Sub(take)
	}

	alloc.Unallocated = remaining
	return alloc, nil
}

// ParseAllocationOrder converts configured bucket names into an order
// slice, rejecting unknown or duplicate buckets
func ParseAllocationOrder(names []string) ([]models.AllocationBucket, error) {
	if len(names) == 0 {
		return models.DefaultAllocationOrder(), nil
	}
	seen := make(map[models.AllocationBucket]bool, len(names))
	order := make([]models.AllocationBucket, 0, len(names))
	for _, name := range names {
		bucket := models.AllocationBucket(name)
		switch bucket {
		case models.BucketPenalties, models.BucketFees, models.BucketInterest, models.BucketPrincipal:
		default:
			return nil, fmt.Errorf("%w: unknown allocation bucket %q", ErrInvalidArgument, name)
		}
		if seen[bucket] {
			return nil, fmt.Errorf("%w: duplicate allocation bucket %q", ErrInvalidArgument, name)
		}
		seen[bucket] = true
		order = append(order, bucket)
	}
	return order, nil
}
