package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmwangi/kopa-api/internal/models"
)

func TestLoanLifecycle(t *testing.T) {
	ctx := context.Background()
	loan := &models.Loan{Status: models.LoanStatusPending}
	lfsm := NewLoanFSM(loan)

	require.NoError(t, lfsm.Approve(ctx))
	assert.Equal(t, models.LoanStatusApproved, loan.Status)

	require.NoError(t, lfsm.Disburse(ctx))
	assert.Equal(t, models.LoanStatusActive, loan.Status)

	require.NoError(t, lfsm.FallBehind(ctx))
	assert.Equal(t, models.LoanStatusArrears, loan.Status)

	require.NoError(t, lfsm.Cure(ctx))
	assert.Equal(t, models.LoanStatusActive, loan.Status)

	require.NoError(t, lfsm.Close(ctx))
	assert.Equal(t, models.LoanStatusClosed, loan.Status)
}

func TestCloseFromArrears(t *testing.T) {
	loan := &models.Loan{Status: models.LoanStatusArrears}
	lfsm := NewLoanFSM(loan)

	require.NoError(t, lfsm.Close(context.Background()))
	assert.Equal(t, models.LoanStatusClosed, loan.Status)
}

func TestWriteOffOnlyFromArrears(t *testing.T) {
	ctx := context.Background()

	loan := &models.Loan{Status: models.LoanStatusArrears}
	require.NoError(t, NewLoanFSM(loan).WriteOff(ctx))
	assert.Equal(t, models.LoanStatusWrittenOff, loan.Status)

	active := &models.Loan{Status: models.LoanStatusActive}
	assert.Error(t, NewLoanFSM(active).WriteOff(ctx))
	assert.Equal(t, models.LoanStatusActive, active.Status)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{models.LoanStatusClosed, models.LoanStatusWrittenOff} {
		loan := &models.Loan{Status: status}
		lfsm := NewLoanFSM(loan)

		assert.Error(t, lfsm.Approve(ctx), "from %s", status)
		assert.Error(t, lfsm.Disburse(ctx), "from %s", status)
		assert.Error(t, lfsm.FallBehind(ctx), "from %s", status)
		assert.Error(t, lfsm.Cure(ctx), "from %s", status)
		assert.Error(t, lfsm.Close(ctx), "from %s", status)
		assert.Error(t, lfsm.WriteOff(ctx), "from %s", status)
		assert.Equal(t, status, loan.Status)
	}
}

func TestInvalidTransitionsRejected(t *testing.T) {
	ctx := context.Background()

	pending := &models.Loan{Status: models.LoanStatusPending}
	assert.Error(t, NewLoanFSM(pending).Disburse(ctx))
	assert.Error(t, NewLoanFSM(pending).Close(ctx))

	active := &models.Loan{Status: models.LoanStatusActive}
	assert.Error(t, NewLoanFSM(active).Approve(ctx))
	assert.Error(t, NewLoanFSM(active).Cure(ctx))
}
