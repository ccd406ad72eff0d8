package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmwangi/kopa-api/internal/models"
)

func TestAllocate_DefaultWaterfall(t *testing.T) {
	svc := NewAllocationService(nil)

	due := Obligations{
		Penalties: decimal.NewFromInt(200),
		Fees:      decimal.Zero,
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(800),
	}

	alloc, err := svc.Allocate(decimal.NewFromInt(1000), due, nil)
	require.NoError(t, err)

	assert.Equal(t, "200.00", alloc.Penalties.StringFixed(2))
	assert.Equal(t, "0.00", alloc.Fees.StringFixed(2))
	assert.Equal(t, "300.00", alloc.Interest.StringFixed(2))
	assert.Equal(t, "500.00", alloc.Principal.StringFixed(2))
	assert.True(t, alloc.Unallocated.IsZero())
	assert.True(t, alloc.Allocated().Equal(decimal.NewFromInt(1000)), "allocations must sum to the amount")
}

func TestAllocate_CustomOrderIsRespected(t *testing.T) {
	svc := NewAllocationService(nil)

	due := Obligations{
		Penalties: decimal.NewFromInt(200),
		Fees:      decimal.NewFromInt(50),
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(800),
	}
	order := []models.AllocationBucket{
		models.BucketPrincipal,
		models.BucketInterest,
		models.BucketPenalties,
		models.BucketFees,
	}

	alloc, err := svc.Allocate(decimal.NewFromInt(1000), due, order)
	require.NoError(t, err)

	// Principal drains first under the inverted order.
	assert.Equal(t, "800.00", alloc.Principal.StringFixed(2))
	assert.Equal(t, "200.00", alloc.Interest.StringFixed(2))
	assert.True(t, alloc.Penalties.IsZero())
	assert.True(t, alloc.Fees.IsZero())
	assert.True(t, alloc.Unallocated.IsZero())
}

func TestAllocate_ExcessSurfacesAsUnallocated(t *testing.T) {
	svc := NewAllocationService(nil)

	due := Obligations{
		Penalties: decimal.NewFromInt(200),
		Fees:      decimal.Zero,
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(800),
	}

	alloc, err := svc.Allocate(decimal.NewFromInt(2000), due, nil)
	require.NoError(t, err)

	assert.Equal(t, "200.00", alloc.Penalties.StringFixed(2))
	assert.Equal(t, "300.00", alloc.Interest.StringFixed(2))
	assert.Equal(t, "800.00", alloc.Principal.StringFixed(2))
	assert.Equal(t, "700.00", alloc.Unallocated.StringFixed(2))
}

func TestAllocate_PartialBucket(t *testing.T) {
	svc := NewAllocationService(nil)

	due := Obligations{
		Penalties: decimal.NewFromInt(200),
		Fees:      decimal.NewFromInt(100),
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(800),
	}

	// Amount runs out mid-way through the fees bucket.
	alloc, err := svc.Allocate(decimal.RequireFromString("250.50"), due, nil)
	require.NoError(t, err)

	assert.Equal(t, "200.00", alloc.Penalties.StringFixed(2))
	assert.Equal(t, "50.50", alloc.Fees.StringFixed(2))
	assert.True(t, alloc.Interest.IsZero())
	assert.True(t, alloc.Principal.IsZero())
	assert.True(t, alloc.Unallocated.IsZero())
}

func TestAllocate_RejectsBadInputs(t *testing.T) {
	svc := NewAllocationService(nil)

	_, err := svc.Allocate(decimal.Zero, Obligations{}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Allocate(decimal.NewFromInt(-10), Obligations{}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Allocate(decimal.NewFromInt(100), Obligations{Interest: decimal.NewFromInt(-5)}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseAllocationOrder(t *testing.T) {
	order, err := ParseAllocationOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAllocationOrder(), order)

	order, err = ParseAllocationOrder([]string{"interest", "principal"})
	require.NoError(t, err)
	assert.Equal(t, []models.AllocationBucket{models.BucketInterest, models.BucketPrincipal}, order)

	_, err = ParseAllocationOrder([]string{"interest", "escrow"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseAllocationOrder([]string{"interest", "interest"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
