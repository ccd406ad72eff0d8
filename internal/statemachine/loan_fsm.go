package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/dmwangi/kopa-api/internal/models"
)

// LoanFSM wraps a loan with its status state machine
type LoanFSM struct {
	loan *models.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a new loan state machine.
// closed and written_off are terminal: no event leaves them.
func NewLoanFSM(loan *models.Loan) *LoanFSM {
	lfsm := &LoanFSM{
		loan: loan,
	}

	lfsm.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			// pending → approved
			{Name: "approve", Src: []string{models.LoanStatusPending}, Dst: models.LoanStatusApproved},

			// approved → active (disbursement)
			{Name: "disburse", Src: []string{models.LoanStatusApproved}, Dst: models.LoanStatusActive},

			// active → arrears
			{Name: "fall_behind", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusArrears},

			// arrears → active (explicit recovery, never implicit)
			{Name: "cure", Src: []string{models.LoanStatusArrears}, Dst: models.LoanStatusActive},

			// active/arrears → closed (balance reached zero)
			{Name: "close", Src: []string{models.LoanStatusActive, models.LoanStatusArrears}, Dst: models.LoanStatusClosed},

			// arrears → written_off
			{Name: "write_off", Src: []string{models.LoanStatusArrears}, Dst: models.LoanStatusWrittenOff},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// Approve transitions the loan to approved
func (l *LoanFSM) Approve(ctx context.Context) error {
	if !l.loan.MayApprove() {
		return fmt.Errorf("loan cannot be approved in current state: %s", l.loan.Status)
	}
	return l.fire(ctx, "approve")
}

// Disburse transitions the loan to active
func (l *LoanFSM) Disburse(ctx context.Context) error {
	if !l.loan.MayDisburse() {
		return fmt.Errorf("loan cannot be disbursed in current state: %s", l.loan.Status)
	}
	return l.fire(ctx, "disburse")
}

// FallBehind transitions the loan to arrears
func (l *LoanFSM) FallBehind(ctx context.Context) error {
	return l.fire(ctx, "fall_behind")
}

// Cure transitions the loan from arrears back to active
func (l *LoanFSM) Cure(ctx context.Context) error {
	if !l.loan.MayCure() {
		return fmt.Errorf("loan cannot be cured in current state: %s", l.loan.Status)
	}
	return l.fire(ctx, "cure")
}

// Close transitions the loan to closed
func (l *LoanFSM) Close(ctx context.Context) error {
	return l.fire(ctx, "close")
}

// WriteOff transitions the loan to written_off
func (l *LoanFSM) WriteOff(ctx context.Context) error {
	return l.fire(ctx, "write_off")
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}

func (l *LoanFSM) fire(ctx context.Context, event string) error {
	if err := l.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("loan transition %q failed: %w", event, err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}
