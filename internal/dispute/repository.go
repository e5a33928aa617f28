package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing dispute records from storage.
// The conditional writes (AppendEvidence, MarkUnderReview, Resolve) return
// false without error when the record's status no longer permits the write.
type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	GetByID(ctx context.Context, id string) (*Dispute, error)
	GetOpenByBooking(ctx context.Context, bookingID string) (*Dispute, error)
	List(ctx context.Context, filter Filter) ([]*Dispute, int, error)
	AppendEvidence(ctx context.Context, id string, ev Evidence) (bool, error)
	MarkUnderReview(ctx context.Context, id string) (bool, error)
	Resolve(ctx context.Context, id string, res Resolution) (bool, error)

	// Delete removes a dispute record; used only to compensate a failed
	// open before the record was ever visible.
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const disputeColumns = `d.id, d.booking_id, d.traveler_id, d.vendor_id, d.raised_by, d.type,
	d.description, d.status, d.resolved_by, d.favor_traveler, d.reputation_impact,
	d.resolution_text, d.resolved_at, d.created_at, d.updated_at`

func (r *pgxRepository) Create(ctx context.Context, d *Dispute) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.disputes").
		Columns("booking_id", "traveler_id", "vendor_id", "raised_by", "type", "description", "status").
		Values(d.BookingID, d.TravelerID, d.VendorID, d.RaisedBy, d.Type, d.Description, d.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create dispute query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		// Partial unique index on (booking_id) where status <> 'resolved'.
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateOpenDispute
		}
		return fmt.Errorf("create dispute failed: %w", err)
	}

	for _, ev := range d.Evidence {
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO public.dispute_evidence (dispute_id, submitter_id, ref, description, submitted_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			d.ID, ev.Submitter, ev.Ref, ev.Description, ev.SubmittedAt,
		); err != nil {
			return fmt.Errorf("create initial evidence failed: %w", err)
		}
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Dispute, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+disputeColumns+" FROM public.disputes d WHERE d.id = $1", id)
	d, err := scanDispute(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadEvidence(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *pgxRepository) GetOpenByBooking(ctx context.Context, bookingID string) (*Dispute, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+disputeColumns+" FROM public.disputes d WHERE d.booking_id = $1 AND d.status <> 'resolved'",
		bookingID)
	d, err := scanDispute(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadEvidence(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func scanDispute(row pgx.Row) (*Dispute, error) {
	var d Dispute
	var resolvedBy, resolutionText *string
	var favorTraveler *bool
	var reputationImpact *int
	var resolvedAt *time.Time
	if err := row.Scan(
		&d.ID, &d.BookingID, &d.TravelerID, &d.VendorID, &d.RaisedBy, &d.Type,
		&d.Description, &d.Status, &resolvedBy, &favorTraveler, &reputationImpact,
		&resolutionText, &resolvedAt, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dispute failed: %w", err)
	}
	d.Resolution = buildResolution(d.Status, resolvedBy, favorTraveler, reputationImpact, resolutionText, resolvedAt)
	return &d, nil
}

func (r *pgxRepository) loadEvidence(ctx context.Context, d *Dispute) error {
	rows, err := r.pool.Query(ctx,
		`SELECT submitter_id, ref, description, submitted_at
		 FROM public.dispute_evidence WHERE dispute_id = $1 ORDER BY submitted_at, id`,
		d.ID)
	if err != nil {
		return fmt.Errorf("load evidence failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev Evidence
		if err := rows.Scan(&ev.Submitter, &ev.Ref, &ev.Description, &ev.SubmittedAt); err != nil {
			return fmt.Errorf("scan evidence failed: %w", err)
		}
		d.Evidence = append(d.Evidence, ev)
	}
	return nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Dispute, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"d.id", "d.booking_id", "d.traveler_id", "d.vendor_id", "d.raised_by", "d.type",
		"d.description", "d.status", "d.resolved_by", "d.favor_traveler", "d.reputation_impact",
		"d.resolution_text", "d.resolved_at", "d.created_at", "d.updated_at",
		"count(*) OVER() as total_count",
	).From("public.disputes d")

	if filter.BookingID != "" {
		query = query.Where(squirrel.Eq{"d.booking_id": filter.BookingID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"d.status": filter.Status})
	}

	query = query.OrderBy("d.created_at DESC")

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
		return nil, 0, fmt.Errorf("build list disputes query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list disputes failed: %w", err)
	}
	defer rows.Close()

	var disputes []*Dispute
	var total int
	for rows.Next() {
		var d Dispute
		var resolvedBy, resolutionText *string
		var favorTraveler *bool
		var reputationImpact *int
		var resolvedAt *time.Time
		if err := rows.Scan(
			&d.ID, &d.BookingID, &d.TravelerID, &d.VendorID, &d.RaisedBy, &d.Type,
			&d.Description, &d.Status, &resolvedBy, &favorTraveler, &reputationImpact,
			&resolutionText, &resolvedAt, &d.CreatedAt, &d.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan dispute failed: %w", err)
		}
		d.Resolution = buildResolution(d.Status, resolvedBy, favorTraveler, reputationImpact, resolutionText, resolvedAt)
		disputes = append(disputes, &d)
	}

	return disputes, total, nil
}

func (r *pgxRepository) AppendEvidence(ctx context.Context, id string, ev Evidence) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO public.dispute_evidence (dispute_id, submitter_id, ref, description, submitted_at)
		 SELECT $1, $2, $3, $4, $5
		 WHERE EXISTS (SELECT 1 FROM public.disputes WHERE id = $1 AND status <> 'resolved')`,
		id, ev.Submitter, ev.Ref, ev.Description, ev.SubmittedAt,
	)
	if err != nil {
		return false, fmt.Errorf("append evidence failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) MarkUnderReview(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		"UPDATE public.disputes SET status = 'under_review', updated_at = now() WHERE id = $1 AND status = 'open'",
		id)
	if err != nil {
		return false, fmt.Errorf("mark under review failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) Resolve(ctx context.Context, id string, res Resolution) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE public.disputes
		 SET status = 'resolved', resolved_by = $1, favor_traveler = $2, reputation_impact = $3,
		     resolution_text = $4, resolved_at = $5, updated_at = now()
		 WHERE id = $6 AND status <> 'resolved'`,
		res.ResolvedBy, res.FavorTraveler, res.ReputationImpact, res.Text, res.ResolvedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("resolve dispute failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM public.dispute_evidence WHERE dispute_id = $1", id); err != nil {
		return fmt.Errorf("delete dispute evidence failed: %w", err)
	}
	ct, err := r.pool.Exec(ctx, "DELETE FROM public.disputes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete dispute failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildResolution assembles the Resolution value for a resolved record.
func buildResolution(status Status, resolvedBy *string, favorTraveler *bool, impact *int, text *string, at *time.Time) *Resolution {
	if status != StatusResolved || resolvedBy == nil {
		return nil
	}
	res := &Resolution{ResolvedBy: *resolvedBy}
	if favorTraveler != nil {
		res.FavorTraveler = *favorTraveler
	}
	if impact != nil {
		res.ReputationImpact = *impact
	}
	if text != nil {
		res.Text = *text
	}
	if at != nil {
		res.ResolvedAt = *at
	}
	return res
}
