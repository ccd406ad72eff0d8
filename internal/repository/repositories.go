package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Loan      LoanRepository
	Repayment RepaymentRepository
	Staging   StagingRepository
	Tx        TxRunner
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Loan:      NewLoanRepository(db),
		Repayment: NewRepaymentRepository(db),
		Staging:   NewStagingRepository(db),
		Tx:        NewTxRunner(db),
	}
}

// TxRunner executes a unit of work inside a single database
// transaction. The callback receives repositories scoped to that
// transaction; any error rolls back every write in the unit, so a
// loan mutation and its repayment record commit together or not at
// all.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(loans LoanRepository, repayments RepaymentRepository) error) error
}

type txRunner struct {
	db *gorm.DB
}

// NewTxRunner creates a transaction runner over the given connection
func NewTxRunner(db *gorm.DB) TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) RunInTx(ctx context.Context, fn func(LoanRepository, RepaymentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewLoanRepository(tx), NewRepaymentRepository(tx))
	})
}
