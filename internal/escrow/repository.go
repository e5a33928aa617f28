package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing booking records from storage.
//
// UpdateStatus is a compare-and-swap: the write applies only if the stored
// status still equals from. This is what serializes racing transitions
// across processes; the per-record lock in the service serializes them
// in-process.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// UpdateStatus transitions id from -> to and applies upd atomically.
	// It returns false (and no error) when the stored status no longer
	// matches from, i.e. the caller lost a race.
	UpdateStatus(ctx context.Context, id string, from, to Status, upd StatusUpdate) (bool, error)

	// ListDue returns bookings whose relevant deadline has passed at now:
	// Pending past the SLA deadline, CheckedIn past checkout.
	ListDue(ctx context.Context, now time.Time) ([]*Booking, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const bookingColumns = `id, traveler_id, vendor_id, amount, hold_id, check_in, check_out,
	buffer_seconds, status, details_ref, cancel_reason, refunded_amount, paid_amount,
	created_at, updated_at`

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("traveler_id", "vendor_id", "amount", "hold_id", "check_in", "check_out",
			"buffer_seconds", "status", "details_ref").
		Values(b.TravelerID, b.VendorID, b.Amount, b.HoldID, b.CheckIn, b.CheckOut,
			int64(b.Buffer.Seconds()), b.Status, b.DetailsRef).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	return r.pool.QueryRow(ctx, query, args...).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+bookingColumns+" FROM public.bookings WHERE id = $1", id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var bufferSeconds int64
	var cancelReason *string
	if err := row.Scan(
		&b.ID, &b.TravelerID, &b.VendorID, &b.Amount, &b.HoldID, &b.CheckIn, &b.CheckOut,
		&bufferSeconds, &b.Status, &b.DetailsRef, &cancelReason, &b.RefundedAmount, &b.PaidAmount,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Buffer = time.Duration(bufferSeconds) * time.Second
	if cancelReason != nil {
		b.CancelReason = *cancelReason
	}
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "traveler_id", "vendor_id", "amount", "hold_id", "check_in", "check_out",
		"buffer_seconds", "status", "details_ref", "cancel_reason", "refunded_amount", "paid_amount",
		"created_at", "updated_at",
		"count(*) OVER() as total_count",
	).From("public.bookings")

	if filter.TravelerID != "" {
		query = query.Where(squirrel.Eq{"traveler_id": filter.TravelerID})
	}
	if filter.VendorID != "" {
		query = query.Where(squirrel.Eq{"vendor_id": filter.VendorID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	query = query.OrderBy("created_at DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		var b Booking
		var bufferSeconds int64
		var cancelReason *string
		if err := rows.Scan(
			&b.ID, &b.TravelerID, &b.VendorID, &b.Amount, &b.HoldID, &b.CheckIn, &b.CheckOut,
			&bufferSeconds, &b.Status, &b.DetailsRef, &cancelReason, &b.RefundedAmount, &b.PaidAmount,
			&b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		b.Buffer = time.Duration(bufferSeconds) * time.Second
		if cancelReason != nil {
			b.CancelReason = *cancelReason
		}
		bookings = append(bookings, &b)
	}

	return bookings, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status, upd StatusUpdate) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Update("public.bookings").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from})

	if upd.RefundedAmount != nil {
		query = query.Set("refunded_amount", *upd.RefundedAmount)
	}
	if upd.PaidAmount != nil {
		query = query.Set("paid_amount", *upd.PaidAmount)
	}
	if upd.CancelReason != nil {
		query = query.Set("cancel_reason", *upd.CancelReason)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update booking status failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) ListDue(ctx context.Context, now time.Time) ([]*Booking, error) {
	const query = `
		SELECT ` + bookingColumns + `
		FROM public.bookings
		WHERE (status = 'pending' AND check_in + make_interval(secs => buffer_seconds) < $1)
		   OR (status = 'checked_in' AND check_out <= $1)
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list due bookings failed: %w", err)
	}
	defer rows.Close()

	var due []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due booking failed: %w", err)
		}
		due = append(due, b)
	}
	return due, nil
}
