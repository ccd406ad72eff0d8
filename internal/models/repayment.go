package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationBucket identifies one obligation bucket a payment can settle
type AllocationBucket string

const (
	BucketPenalties AllocationBucket = "penalties"
	BucketFees      AllocationBucket = "fees"
	BucketInterest  AllocationBucket = "interest"
	BucketPrincipal AllocationBucket = "principal"
)

// DefaultAllocationOrder is the reference waterfall: penalties first,
// then fees, then interest, principal last. Organisations may override it.
func DefaultAllocationOrder() []AllocationBucket {
	return []AllocationBucket{BucketPenalties, BucketFees, BucketInterest, BucketPrincipal}
}

// RepaymentAllocation is the breakdown of one payment amount across buckets.
// The four components always sum to the allocated part of the input amount;
// anything the dues could not absorb is surfaced in Unallocated.
type RepaymentAllocation struct {
	Penalties   decimal.Decimal `json:"penalties"`
	Fees        decimal.Decimal `json:"fees"`
	Interest    decimal.Decimal `json:"interest"`
	Principal   decimal.Decimal `json:"principal"`
	Unallocated decimal.Decimal `json:"unallocated"`
}

// Allocated returns the portion of the payment consumed by the four buckets
func (a RepaymentAllocation) Allocated() decimal.Decimal {
	return a.Penalties.Add(a.Fees).Add(a.Interest).Add(a.Principal)
}

// RepaymentRecord is an immutable, append-only record of an accepted repayment
type RepaymentRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Reference   string          `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	LoanID      uint            `gorm:"not null;index" json:"loan_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Penalties   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"penalties"`
	Fees        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"fees"`
	Interest    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"interest"`
	Principal   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"principal"`
	Unallocated decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"unallocated"`
	DaysOverdue int             `gorm:"not null;default:0" json:"days_overdue"`
	PaidAt      time.Time       `gorm:"type:date;not null;index" json:"paid_at"`
	CreatedAt   time.Time       `json:"created_at"`

	Loan *Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
}

// TableName specifies the table name for RepaymentRecord
func (RepaymentRecord) TableName() string {
	return "repayment_records"
}
