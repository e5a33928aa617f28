package vendor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing vendor data from storage.
type Repository interface {
	Create(ctx context.Context, v *Vendor) error
	GetByID(ctx context.Context, id string) (*Vendor, error)
	GetByOwner(ctx context.Context, ownerID string) (*Vendor, error)
	List(ctx context.Context, filter Filter) ([]*Vendor, int, error)
	Update(ctx context.Context, v *Vendor) error

	// AdjustReputation applies delta to the vendor's score, clamped to
	// [MinReputation, MaxReputation], and returns the resulting score.
	AdjustReputation(ctx context.Context, id string, delta int) (int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const vendorColumns = "id, owner_id, name, description, reputation_score, is_verified, is_active, created_at, updated_at"

func (r *pgxRepository) Create(ctx context.Context, v *Vendor) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.vendors").
		Columns("owner_id", "name", "description", "reputation_score", "is_verified", "is_active").
		Values(v.OwnerID, v.Name, v.Description, v.ReputationScore, v.IsVerified, v.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create vendor query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyOwner
		}
		return fmt.Errorf("create vendor failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Vendor, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+vendorColumns+" FROM public.vendors WHERE id = $1", id)
	return scanVendor(row)
}

func (r *pgxRepository) GetByOwner(ctx context.Context, ownerID string) (*Vendor, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+vendorColumns+" FROM public.vendors WHERE owner_id = $1", ownerID)
	return scanVendor(row)
}

func scanVendor(row pgx.Row) (*Vendor, error) {
	var v Vendor
	if err := row.Scan(
		&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.ReputationScore,
		&v.IsVerified, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vendor failed: %w", err)
	}
	return &v, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Vendor, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "owner_id", "name", "description", "reputation_score",
		"is_verified", "is_active", "created_at", "updated_at",
		"count(*) OVER() as total_count",
	).From("public.vendors")

	if filter.IsActive != nil {
		query = query.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.IsVerified != nil {
		query = query.Where(squirrel.Eq{"is_verified": *filter.IsVerified})
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
		return nil, 0, fmt.Errorf("build list vendors query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors failed: %w", err)
	}
	defer rows.Close()

	var vendors []*Vendor
	var total int
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.ReputationScore,
			&v.IsVerified, &v.IsActive, &v.CreatedAt, &v.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan vendor failed: %w", err)
		}
		vendors = append(vendors, &v)
	}

	return vendors, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, v *Vendor) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.vendors").
		Set("name", v.Name).
		Set("description", v.Description).
		Set("is_verified", v.IsVerified).
		Set("is_active", v.IsActive).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": v.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update vendor query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update vendor failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) AdjustReputation(ctx context.Context, id string, delta int) (int, error) {
	// Clamp in SQL so concurrent deltas never push the score out of range.
	const query = `
		UPDATE public.vendors
		SET reputation_score = LEAST($1, GREATEST($2, reputation_score + $3)),
		    updated_at = now()
		WHERE id = $4
		RETURNING reputation_score
	`

	var score int
	err := r.pool.QueryRow(ctx, query, MaxReputation, MinReputation, delta, id).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("adjust reputation failed: %w", err)
	}
	return score, nil
}
