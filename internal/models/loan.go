package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan represents a single credit facility
type Loan struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Reference        string          `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	BorrowerName     string          `gorm:"size:120;not null" json:"borrower_name"`
	Principal        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal"`
	AnnualRate       float64         `gorm:"type:decimal(6,3);not null" json:"annual_rate"` // percent, e.g. 12.5
	TermMonths       int             `gorm:"not null" json:"term_months"`
	Convention       string          `gorm:"size:20;default:reducing_balance" json:"convention"`
	DisbursedAt      *time.Time      `gorm:"type:date" json:"disbursed_at"`
	Outstanding      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"outstanding"`
	PenaltiesDue     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"penalties_due"`
	PenaltiesAccrued decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"penalties_accrued"` // lifetime accrual watermark; never reduced by payments
	FeesDue          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"fees_due"`
	InterestDue      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"interest_due"`
	NextDueDate      *time.Time      `gorm:"type:date;index" json:"next_due_date"`
	Status           string          `gorm:"size:20;default:pending;not null;index" json:"status"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	Version          int64           `gorm:"not null;default:0" json:"-"` // optimistic concurrency check
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusPending    = "pending"
	LoanStatusApproved   = "approved"
	LoanStatusActive     = "active"
	LoanStatusArrears    = "arrears"
	LoanStatusClosed     = "closed"
	LoanStatusWrittenOff = "written_off"
)

// IsTerminal returns true once a loan can no longer be mutated
func (l *Loan) IsTerminal() bool {
	return l.Status == LoanStatusClosed || l.Status == LoanStatusWrittenOff
}

// MayApprove returns true if the loan can be approved
func (l *Loan) MayApprove() bool {
	return l.Status == LoanStatusPending
}

// MayDisburse returns true if the loan can be disbursed
func (l *Loan) MayDisburse() bool {
	return l.Status == LoanStatusApproved
}

// MayRepay returns true if a repayment can be applied
func (l *Loan) MayRepay() bool {
	return l.Status == LoanStatusActive || l.Status == LoanStatusArrears
}

// MayCure returns true if the loan can recover from arrears
func (l *Loan) MayCure() bool {
	return l.Status == LoanStatusArrears
}

// TotalDue returns the sum of all open obligations plus outstanding principal
func (l *Loan) TotalDue() decimal.Decimal {
	return l.PenaltiesDue.Add(l.FeesDue).Add(l.InterestDue).Add(l.Outstanding)
}

// LoanResponse is the JSON response format for loans
type LoanResponse struct {
	ID           uint            `json:"id"`
	Reference    string          `json:"reference"`
	BorrowerName string          `json:"borrower_name"`
	Principal    decimal.Decimal `json:"principal"`
	AnnualRate   float64         `json:"annual_rate"`
	TermMonths   int             `json:"term_months"`
	Convention   string          `json:"convention"`
	DisbursedAt  *time.Time      `json:"disbursed_at"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	PenaltiesDue decimal.Decimal `json:"penalties_due"`
	FeesDue      decimal.Decimal `json:"fees_due"`
	InterestDue  decimal.Decimal `json:"interest_due"`
	NextDueDate  *time.Time      `json:"next_due_date"`
	Status       string          `json:"status"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

// ToResponse converts Loan to LoanResponse
func (l *Loan) ToResponse() LoanResponse {
	return LoanResponse{
		ID:           l.ID,
		Reference:    l.Reference,
		BorrowerName: l.BorrowerName,
		Principal:    l.Principal,
		AnnualRate:   l.AnnualRate,
		TermMonths:   l.TermMonths,
		Convention:   l.Convention,
		DisbursedAt:  l.DisbursedAt,
		Outstanding:  l.Outstanding,
		PenaltiesDue: l.PenaltiesDue,
		FeesDue:      l.FeesDue,
		InterestDue:  l.InterestDue,
		NextDueDate:  l.NextDueDate,
		Status:       l.Status,
		ClosedAt:     l.ClosedAt,
	}
}
