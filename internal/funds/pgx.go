package funds

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxCustody is a Custody backed by a Postgres ledger. Each hold is a row
// with a remaining balance; movements are appended under a row lock so a
// hold can never be overdrawn even across processes.
type PgxCustody struct {
	pool *pgxpool.Pool
}

func NewPgxCustody(pool *pgxpool.Pool) *PgxCustody {
	return &PgxCustody{pool: pool}
}

func (c *PgxCustody) Hold(ctx context.Context, payer string, amount int64) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.escrow_holds").
		Columns("payer_id", "amount", "remaining").
		Values(payer, amount, amount).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build create hold query failed: %w", err)
	}

	var id string
	if err := c.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("create hold failed: %w", err)
	}
	return id, nil
}

func (c *PgxCustody) Release(ctx context.Context, holdID, recipient string, amount int64) error {
	return c.move(ctx, holdID, recipient, amount, KindRelease)
}

func (c *PgxCustody) Refund(ctx context.Context, holdID, recipient string, amount int64) error {
	return c.move(ctx, holdID, recipient, amount, KindRefund)
}

func (c *PgxCustody) move(ctx context.Context, holdID, recipient string, amount int64, kind string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin custody tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var remaining int64
	err = tx.QueryRow(ctx,
		"SELECT remaining FROM public.escrow_holds WHERE id = $1 FOR UPDATE",
		holdID,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrHoldNotFound
		}
		return fmt.Errorf("lock hold failed: %w", err)
	}

	if amount > remaining {
		return ErrInsufficientHold
	}

	if _, err := tx.Exec(ctx,
		"UPDATE public.escrow_holds SET remaining = remaining - $1 WHERE id = $2",
		amount, holdID,
	); err != nil {
		return fmt.Errorf("update hold remaining failed: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO public.escrow_movements (hold_id, kind, recipient_id, amount)
		 VALUES ($1, $2, $3, $4)`,
		holdID, kind, recipient, amount,
	); err != nil {
		return fmt.Errorf("record movement failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit custody tx failed: %w", err)
	}
	return nil
}
