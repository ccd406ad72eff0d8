package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
)

// Mock StagingRepository (using embedding to avoid implementing all methods)
type mockStagingRepository struct {
	repository.StagingRepository
	mockAppendStage     func(ctx context.Context, result *models.CreditStageResult) error
	mockAppendProvision func(ctx context.Context, result *models.ProvisionResult) error
}

func (m *mockStagingRepository) AppendStage(ctx context.Context, result *models.CreditStageResult) error {
	if m.mockAppendStage != nil {
		return m.mockAppendStage(ctx, result)
	}
	return nil
}

func (m *mockStagingRepository) AppendProvision(ctx context.Context, result *models.ProvisionResult) error {
	if m.mockAppendProvision != nil {
		return m.mockAppendProvision(ctx, result)
	}
	return nil
}

func newStagingService(repo repository.StagingRepository) *StagingService {
	return NewStagingService(repo, NewArrearsService(), DefaultBasePD, DefaultLGD)
}

func TestStage_Stage3Exposure(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	// 95 days past due: stage 3, PD multiplier 2.5.
	result, err := svc.Stage(7, 95, 0.05, 0.45, decimal.NewFromInt(50000), asOf)
	require.NoError(t, err)

	assert.Equal(t, models.Stage3, result.Stage)
	assert.Equal(t, models.BucketDays180, result.Bucket)
	assert.InDelta(t, 0.125, result.PD, 1e-9)
	assert.InDelta(t, 0.45, result.LGD, 1e-9)
	assert.Equal(t, "2812.50", result.ECL.StringFixed(2))
	assert.Equal(t, asOf, result.ComputedAt)
}

func TestStage_Boundaries(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})

	cases := []struct {
		days      int
		wantStage string
		wantPD    float64
	}{
		{0, models.Stage1, 0.05},
		{30, models.Stage1, 0.05},
		{31, models.Stage2, 0.075},
		{90, models.Stage2, 0.075},
		{91, models.Stage3, 0.125},
	}

	for _, tc := range cases {
		result, err := svc.Stage(1, tc.days, 0.05, 0.45, decimal.NewFromInt(1000), time.Now())
		require.NoError(t, err)
		assert.Equal(t, tc.wantStage, result.Stage, "days=%d", tc.days)
		assert.InDelta(t, tc.wantPD, result.PD, 1e-9, "days=%d", tc.days)
	}
}

func TestStage_PDCappedAtOne(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})

	result, err := svc.Stage(1, 120, 0.5, 0.45, decimal.NewFromInt(10000), time.Now())
	require.NoError(t, err)

	// 0.5 * 2.5 would be 1.25; probabilities cap at 1.0.
	assert.Equal(t, 1.0, result.PD)
	assert.Equal(t, "4500.00", result.ECL.StringFixed(2))
}

func TestStage_ZeroInputsUseDefaults(t *testing.T) {
	svc := NewStagingService(&mockStagingRepository{}, NewArrearsService(), 0.08, 0.60)

	result, err := svc.Stage(1, 10, 0, 0, decimal.NewFromInt(1000), time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 0.08, result.PD, 1e-9)
	assert.InDelta(t, 0.60, result.LGD, 1e-9)
}

func TestStage_Idempotent(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.Stage(3, 45, 0.05, 0.45, decimal.NewFromInt(20000), asOf)
	require.NoError(t, err)
	second, err := svc.Stage(3, 45, 0.05, 0.45, decimal.NewFromInt(20000), asOf)
	require.NoError(t, err)

	assert.Equal(t, first.Stage, second.Stage)
	assert.Equal(t, first.PD, second.PD)
	assert.True(t, first.ECL.Equal(second.ECL))
}

func TestStage_ECLMonotoneInDelinquency(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})
	ead := decimal.NewFromInt(10000)

	prev := decimal.Zero
	for _, days := range []int{0, 31, 91} {
		result, err := svc.Stage(1, days, 0.05, 0.45, ead, time.Now())
		require.NoError(t, err)
		assert.True(t, result.ECL.GreaterThan(prev), "ECL must grow with delinquency: days=%d", days)
		prev = result.ECL
	}
}

func TestStage_RejectsBadInputs(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})

	_, err := svc.Stage(1, -1, 0.05, 0.45, decimal.NewFromInt(1000), time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Stage(1, 10, 1.5, 0.45, decimal.NewFromInt(1000), time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Stage(1, 10, 0.05, -0.1, decimal.NewFromInt(1000), time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Stage(1, 10, 0.05, 0.45, decimal.NewFromInt(-1), time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestProvision_Ladder(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})
	outstanding := decimal.NewFromInt(50000)

	cases := []struct {
		days       int
		wantClass  string
		wantAmount string
	}{
		{0, models.ClassStandard, "500.00"},
		{30, models.ClassStandard, "500.00"},
		{31, models.ClassWatch, "2500.00"},
		{61, models.ClassSubstandard, "5000.00"},
		{95, models.ClassDoubtful, "25000.00"},
		{181, models.ClassLoss, "50000.00"},
	}

	for _, tc := range cases {
		result, err := svc.Provision(7, tc.days, outstanding, time.Now())
		require.NoError(t, err)
		assert.Equal(t, tc.wantClass, result.Classification, "days=%d", tc.days)
		assert.Equal(t, tc.wantAmount, result.Amount.StringFixed(2), "days=%d", tc.days)
	}
}

func TestProvision_IndependentFromStaging(t *testing.T) {
	svc := newStagingService(&mockStagingRepository{})

	// 61 days: stage 2 on the IFRS ladder but substandard on the
	// provisioning ladder. The two classifications never collapse into
	// one another.
	stage, err := svc.Stage(1, 61, 0.05, 0.45, decimal.NewFromInt(1000), time.Now())
	require.NoError(t, err)
	provision, err := svc.Provision(1, 61, decimal.NewFromInt(1000), time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.Stage2, stage.Stage)
	assert.Equal(t, models.ClassSubstandard, provision.Classification)
}

func TestSnapshot_AppendsBothClassifications(t *testing.T) {
	var gotStage *models.CreditStageResult
	var gotProvision *models.ProvisionResult

	repo := &mockStagingRepository{
		mockAppendStage: func(ctx context.Context, result *models.CreditStageResult) error {
			gotStage = result
			return nil
		},
		mockAppendProvision: func(ctx context.Context, result *models.ProvisionResult) error {
			gotProvision = result
			return nil
		},
	}
	svc := newStagingService(repo)

	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	due := asOf.AddDate(0, 0, -95)
	loan := &models.Loan{
		ID:          7,
		Status:      models.LoanStatusArrears,
		Outstanding: decimal.NewFromInt(50000),
		NextDueDate: &due,
	}

	err := svc.Snapshot(context.Background(), loan, asOf)
	require.NoError(t, err)

	require.NotNil(t, gotStage)
	require.NotNil(t, gotProvision)
	assert.Equal(t, loan.ID, gotStage.LoanID)
	assert.Equal(t, models.Stage3, gotStage.Stage)
	assert.Equal(t, "2812.50", gotStage.ECL.StringFixed(2))
	assert.Equal(t, models.ClassDoubtful, gotProvision.Classification)
	assert.Equal(t, "25000.00", gotProvision.Amount.StringFixed(2))
	assert.Equal(t, gotStage.DaysOverdue, gotProvision.DaysOverdue, "both ladders read the same days-overdue input")
}

func TestSnapshot_RepositoryFailurePropagates(t *testing.T) {
	repo := &mockStagingRepository{
		mockAppendStage: func(ctx context.Context, result *models.CreditStageResult) error {
			return repository.ErrUnavailable
		},
	}
	svc := newStagingService(repo)

	loan := &models.Loan{ID: 1, Status: models.LoanStatusActive, Outstanding: decimal.NewFromInt(1000)}
	err := svc.Snapshot(context.Background(), loan, time.Now())
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}
