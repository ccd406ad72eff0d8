package services

import (
	"time"

	"github.com/dmwangi/kopa-api/internal/models"
)

// ArrearsService computes days-overdue and maps them onto delinquency
// buckets. Pure functions over their inputs; the fixed thresholds are
// 0 / 30 / 60 / 90 / 180 days.
type ArrearsService struct{}

// NewArrearsService creates a new arrears classifier
func NewArrearsService() *ArrearsService {
	return &ArrearsService{}
}

// DaysOverdue returns how many whole days asOf lies past dueDate,
// floored and never negative
func (s *ArrearsService) DaysOverdue(dueDate, asOf time.Time) int {
	days := int(asOf.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Bucket maps a days-overdue count onto its delinquency bucket
func (s *ArrearsService) Bucket(daysOverdue int) models.DelinquencyBucket {
	switch {
	case daysOverdue <= 0:
		return models.BucketCurrent
	case daysOverdue <= 30:
		return models.BucketDays30
	case daysOverdue <= 60:
		return models.BucketDays60
	case daysOverdue <= 90:
		return models.BucketDays90
	case daysOverdue <= 180:
		return models.BucketDays180
	default:
		return models.BucketDays180P
	}
}

// Classify returns the delinquency bucket and days-overdue for a loan as
// of the given date. A loan without a due date (fully repaid or never
// disbursed) is current by convention, with zero days overdue.
func (s *ArrearsService) Classify(loan *models.Loan, asOf time.Time) (models.DelinquencyBucket, int) {
	if loan.NextDueDate == nil {
		return models.BucketCurrent, 0
	}
	days := s.DaysOverdue(*loan.NextDueDate, asOf)
	return s.Bucket(days), days
}
