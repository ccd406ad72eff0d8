package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DelinquencyBucket bands days-overdue into the standard arrears aging buckets
type DelinquencyBucket string

const (
	BucketCurrent  DelinquencyBucket = "current"
	BucketDays30   DelinquencyBucket = "1-30"
	BucketDays60   DelinquencyBucket = "31-60"
	BucketDays90   DelinquencyBucket = "61-90"
	BucketDays180  DelinquencyBucket = "91-180"
	BucketDays180P DelinquencyBucket = "180+"
)

// IFRS 9 stage constants
const (
	Stage1 = "stage_1"
	Stage2 = "stage_2"
	Stage3 = "stage_3"
)

// Jurisdictional provisioning classification constants
const (
	ClassStandard    = "standard"
	ClassWatch       = "watch"
	ClassSubstandard = "substandard"
	ClassDoubtful    = "doubtful"
	ClassLoss        = "loss"
)

// CreditStageResult is an append-only snapshot of a loan's IFRS 9 staging.
// Historical rows are never mutated; they form the staging audit trail.
type CreditStageResult struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	LoanID      uint              `gorm:"not null;index" json:"loan_id"`
	Stage       string            `gorm:"size:10;not null" json:"stage"`
	Bucket      DelinquencyBucket `gorm:"size:10;not null" json:"bucket"`
	DaysOverdue int               `gorm:"not null" json:"days_overdue"`
	PD          float64           `gorm:"type:decimal(7,5);not null" json:"pd"`
	LGD         float64           `gorm:"type:decimal(7,5);not null" json:"lgd"`
	EAD         decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"ead"`
	ECL         decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"ecl"`
	ComputedAt  time.Time         `gorm:"not null;index" json:"computed_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TableName specifies the table name for CreditStageResult
func (CreditStageResult) TableName() string {
	return "credit_stage_results"
}

// ProvisionResult is an append-only snapshot of the jurisdictional
// provisioning classification. It is computed from the same days-overdue
// input as CreditStageResult but follows an independent ladder.
type ProvisionResult struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	LoanID         uint            `gorm:"not null;index" json:"loan_id"`
	Classification string          `gorm:"size:15;not null" json:"classification"`
	DaysOverdue    int             `gorm:"not null" json:"days_overdue"`
	Rate           float64         `gorm:"type:decimal(5,4);not null" json:"rate"`
	Outstanding    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"outstanding"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ComputedAt     time.Time       `gorm:"not null;index" json:"computed_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for ProvisionResult
func (ProvisionResult) TableName() string {
	return "provision_results"
}
