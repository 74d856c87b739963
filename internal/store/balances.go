package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/othala/internal/apperr"
)

// Balance returns the reward balance of holder, or 0 if none is recorded.
func (db *DB) Balance(holder string) (uint64, error) {
	var b uint64
	err := db.conn.QueryRow(`SELECT COALESCE((SELECT balance FROM balances WHERE holder = ?), 0)`, holder).Scan(&b)
	if err != nil {
		return 0, fmt.Errorf("store: balance: %w", err)
	}
	return b, nil
}

// TotalSupply returns the sum of all balances. Tokens are never burned, so
// this equals the total ever deposited.
func (db *DB) TotalSupply() (uint64, error) {
	var s uint64
	if err := db.conn.QueryRow(`SELECT COALESCE(SUM(balance), 0) FROM balances`).Scan(&s); err != nil {
		return 0, fmt.Errorf("store: total supply: %w", err)
	}
	return s, nil
}

// Deposit mints amount into holder's balance, rejecting the deposit with
// apperr.ErrSupplyCap when it would push total supply past maxSupply.
func (db *DB) Deposit(holder string, amount, maxSupply uint64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var supply uint64
	if err := tx.QueryRow(`SELECT COALESCE(SUM(balance), 0) FROM balances`).Scan(&supply); err != nil {
		return fmt.Errorf("store: total supply: %w", err)
	}
	// Phrased to avoid wrapping on supply+amount.
	if supply > maxSupply || amount > maxSupply-supply {
		return apperr.ErrSupplyCap
	}
	if err := credit(tx, holder, amount); err != nil {
		return err
	}
	return tx.Commit()
}

// DistributeBatch moves amounts[i] from the single source balance to each
// recipient. The total is checked against the source balance once, before
// any transfer: either the whole batch lands or none of it does. A batch
// whose sum wraps uint64 is rejected outright.
func (db *DB) DistributeBatch(from string, recipients []string, amounts []uint64) error {
	var total uint64
	for _, a := range amounts {
		if total+a < total {
			return apperr.ErrInvalidAmount
		}
		total += a
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := debit(tx, from, total); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO balances (holder, balance) VALUES (?, ?)
		ON CONFLICT(holder) DO UPDATE SET balance = balance + excluded.balance
	`)
	if err != nil {
		return fmt.Errorf("store: prepare credit: %w", err)
	}
	defer stmt.Close()
	for i, to := range recipients {
		if _, err := stmt.Exec(to, amounts[i]); err != nil {
			return fmt.Errorf("store: credit %s: %w", to, err)
		}
	}

	return tx.Commit()
}

// applyPayout transfers p.Amount from p.From to p.To inside tx, skipping
// silently (paid=0) when the source balance is insufficient.
func applyPayout(tx *sql.Tx, p Payout) (uint64, error) {
	if p.Amount == 0 {
		return 0, nil
	}
	var available uint64
	err := tx.QueryRow(`SELECT COALESCE((SELECT balance FROM balances WHERE holder = ?), 0)`, p.From).Scan(&available)
	if err != nil {
		return 0, fmt.Errorf("store: payout balance: %w", err)
	}
	if available < p.Amount {
		return 0, nil
	}
	if err := debit(tx, p.From, p.Amount); err != nil {
		return 0, err
	}
	if err := credit(tx, p.To, p.Amount); err != nil {
		return 0, err
	}
	return p.Amount, nil
}

// debit subtracts amount from holder's balance, failing with
// apperr.ErrInsufficientFunds when it does not cover amount.
func debit(tx *sql.Tx, holder string, amount uint64) error {
	res, err := tx.Exec(`
		UPDATE balances SET balance = balance - ? WHERE holder = ? AND balance >= ?
	`, amount, holder, amount)
	if err != nil {
		return fmt.Errorf("store: debit %s: %w", holder, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: debit %s: %w", holder, err)
	}
	if n == 0 {
		return apperr.ErrInsufficientFunds
	}
	return nil
}

// credit adds amount to holder's balance, creating the row if needed.
func credit(tx *sql.Tx, holder string, amount uint64) error {
	_, err := tx.Exec(`
		INSERT INTO balances (holder, balance) VALUES (?, ?)
		ON CONFLICT(holder) DO UPDATE SET balance = balance + excluded.balance
	`, holder, amount)
	if err != nil {
		return fmt.Errorf("store: credit %s: %w", holder, err)
	}
	return nil
}
