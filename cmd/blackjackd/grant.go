package main

import (
	"context"
	"fmt"

	"github.com/cardhouse/blackjackd/internal/ledger"
	"github.com/cardhouse/blackjackd/internal/store"
)

// GrantCmd credits points to a user's balance, the operator-side funding
// path. Player balances otherwise only change through game play.
type GrantCmd struct {
	User   int64  `kong:"required,help='User id to credit'"`
	Amount int64  `kong:"required,help='Points to credit'"`
	DB     string `kong:"default='blackjackd.db',help='Path to SQLite database'"`
}

func (c *GrantCmd) Run() error {
	if c.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", c.Amount)
	}

	db, err := store.OpenDB(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	points := ledger.NewSQLLedger(db)
	if err := points.Migrate(); err != nil {
		return err
	}

	ctx := context.Background()
	if err := points.Credit(ctx, c.User, c.Amount, ledger.ReasonDeposit, ""); err != nil {
		return err
	}

	balance, err := points.Balance(ctx, c.User)
	if err != nil {
		return err
	}
	fmt.Printf("credited %d points to user %d (balance now %d)\n", c.Amount, c.User, balance)
	return nil
}
