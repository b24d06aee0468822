package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/tablemate/internal/dto"
	"github.com/octobees/tablemate/internal/entity"
)

// VenuesRepository describes persistence operations for the venue catalogue.
type VenuesRepository interface {
	BulkUpsert(ctx context.Context, venues []entity.Venue) (BulkUpsertResult, error)
	List(ctx context.Context, filter dto.VenueFilter) ([]entity.Venue, error)
	All(ctx context.Context) ([]entity.Venue, error)
}

// BulkUpsertResult summarises the number of rows inserted or updated.
type BulkUpsertResult struct {
	Inserted int
	Updated  int
	Total    int
}

// PGXVenuesRepository implements VenuesRepository using pgx.
type PGXVenuesRepository struct {
	pool pgxPool
}

// NewPGXVenuesRepository wires a pgx backed repository.
func NewPGXVenuesRepository(pool *pgxpool.Pool) *PGXVenuesRepository {
	return &PGXVenuesRepository{pool: pool}
}

const venueColumns = `id, name, city, cuisine, price, rating, rating_count, access_wheelchair, access_step_free, access_restroom, updated_at`

const bulkUpsertVenueSQL = `
        INSERT INTO venues (id, name, city, cuisine, price, rating, rating_count, access_wheelchair, access_step_free, access_restroom, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            city = EXCLUDED.city,
            cuisine = EXCLUDED.cuisine,
            price = EXCLUDED.price,
            rating = EXCLUDED.rating,
            rating_count = EXCLUDED.rating_count,
            access_wheelchair = EXCLUDED.access_wheelchair,
            access_step_free = EXCLUDED.access_step_free,
            access_restroom = EXCLUDED.access_restroom,
            updated_at = NOW()
        RETURNING xmax = 0;
    `

// BulkUpsert persists a batch of venues keyed by id in one transaction.
func (r *PGXVenuesRepository) BulkUpsert(ctx context.Context, venues []entity.Venue) (BulkUpsertResult, error) {
	var result BulkUpsertResult
	if len(venues) == 0 {
		return result, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("start bulk upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, v := range venues {
		var inserted bool
		err := tx.QueryRow(ctx, bulkUpsertVenueSQL,
			v.ID,
			v.Name,
			v.City,
			v.Cuisine,
			v.Price,
			v.Rating,
			intOrNil(v.RatingCount),
			v.AccessWheelchair,
			v.AccessStepFree,
			v.AccessRestroom,
		).Scan(&inserted)
		if err != nil {
			return result, fmt.Errorf("bulk upsert venue %q: %w", v.ID, err)
		}

		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
		result.Total++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit bulk upsert tx: %w", err)
	}

	return result, nil
}

// List retrieves venues matching the provided filter, sorted by rating then name.
func (r *PGXVenuesRepository) List(ctx context.Context, filter dto.VenueFilter) ([]entity.Venue, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + venueColumns + ` FROM venues`)

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.City != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(city) = LOWER($%d)", idx))
		args = append(args, filter.City)
		idx++
	}
	if filter.Cuisine != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(cuisine) = LOWER($%d)", idx))
		args = append(args, filter.Cuisine)
		idx++
	}
	if filter.MinRating != nil {
		clauses = append(clauses, fmt.Sprintf("rating >= $%d", idx))
		args = append(args, *filter.MinRating)
		idx++
	}

	if len(clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY rating DESC, name ASC")

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1))
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	return scanVenues(rows)
}

// All returns the whole catalogue ordered by id.
func (r *PGXVenuesRepository) All(ctx context.Context) ([]entity.Venue, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+venueColumns+` FROM venues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	defer rows.Close()

	return scanVenues(rows)
}

func scanVenues(rows pgx.Rows) ([]entity.Venue, error) {
	var venues []entity.Venue
	for rows.Next() {
		var (
			v           entity.Venue
			ratingCount sql.NullInt64
			updatedAt   sql.NullTime
		)
		err := rows.Scan(
			&v.ID,
			&v.Name,
			&v.City,
			&v.Cuisine,
			&v.Price,
			&v.Rating,
			&ratingCount,
			&v.AccessWheelchair,
			&v.AccessStepFree,
			&v.AccessRestroom,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		if ratingCount.Valid {
			count := int(ratingCount.Int64)
			v.RatingCount = &count
		}
		if updatedAt.Valid {
			ts := updatedAt.Time
			v.UpdatedAt = &ts
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}
	return venues, nil
}

func intOrNil(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
