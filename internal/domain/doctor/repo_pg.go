package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/clinicq/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `id, display_name, specialty, verification_status, accepting,
	work_start_minute, work_end_minute, work_days, avg_consult_minutes,
	created_at, updated_at`

func (r *repoPG) scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.DisplayName, &p.Specialty, &p.VerificationStatus, &p.Accepting,
		&p.WorkStartMinute, &p.WorkEndMinute, &p.WorkDays, &p.AvgConsultMinutes,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_profile (id, display_name, specialty, verification_status, accepting,
			work_start_minute, work_end_minute, work_days, avg_consult_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.DisplayName, p.Specialty, p.VerificationStatus, p.Accepting,
		p.WorkStartMinute, p.WorkEndMinute, p.WorkDays, p.AvgConsultMinutes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM doctor_profile WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_profile SET display_name=$2, specialty=$3, verification_status=$4,
			accepting=$5, work_start_minute=$6, work_end_minute=$7, work_days=$8,
			avg_consult_minutes=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DisplayName, p.Specialty, p.VerificationStatus,
		p.Accepting, p.WorkStartMinute, p.WorkEndMinute, p.WorkDays,
		p.AvgConsultMinutes)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return r.list(ctx, `WHERE 1=1`, limit, offset)
}

func (r *repoPG) ListVerified(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return r.list(ctx, `WHERE verification_status = 'verified'`, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor_profile `+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+profileCols+` FROM doctor_profile `+where+` ORDER BY display_name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Profile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
