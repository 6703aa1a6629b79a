package queue

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

const entryCols = `id, doctor_id, patient_id, status, priority, queue_position,
	estimated_wait_minutes, notes, consultation_start_time, consultation_end_time,
	created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.DoctorID, &e.PatientID, &e.Status, &e.Priority, &e.Position,
		&e.EstimatedWaitMinutes, &e.Notes, &e.ConsultationStartTime, &e.ConsultationEndTime,
		&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO queue_entry (id, doctor_id, patient_id, status, priority,
			queue_position, estimated_wait_minutes, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		e.ID, e.DoctorID, e.PatientID, e.Status, e.Priority,
		e.Position, e.EstimatedWaitMinutes, e.Notes).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue_entry SET status=$2, priority=$3, queue_position=$4,
			estimated_wait_minutes=$5, consultation_start_time=$6,
			consultation_end_time=$7, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Status, e.Priority, e.Position,
		e.EstimatedWaitMinutes, e.ConsultationStartTime, e.ConsultationEndTime)
	return err
}

func (r *repoPG) ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE doctor_id = $1 AND status IN ('waiting', 'in_consultation')
		ORDER BY CASE status WHEN 'in_consultation' THEN 0 ELSE 1 END, queue_position ASC`,
		doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) GetActiveByDoctorPatient(ctx context.Context, doctorID, patientID uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE doctor_id = $1 AND patient_id = $2 AND status IN ('waiting', 'in_consultation')`,
		doctorID, patientID))
}

func (r *repoPG) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE patient_id = $1 AND status IN ('waiting', 'in_consultation')
		ORDER BY created_at DESC LIMIT 1`,
		patientID))
}

func (r *repoPG) GetInConsultationByDoctor(ctx context.Context, doctorID uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE doctor_id = $1 AND status = 'in_consultation'`,
		doctorID))
}

func (r *repoPG) UpdatePlacements(ctx context.Context, placements []Placement) error {
	for _, p := range placements {
		_, err := r.conn(ctx).Exec(ctx, `
			UPDATE queue_entry SET queue_position=$2, estimated_wait_minutes=$3, updated_at=NOW()
			WHERE id = $1`,
			p.EntryID, p.Position, p.EstimatedWaitMinutes)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListHistoryByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entry
		WHERE doctor_id = $1 AND status IN ('completed', 'skipped', 'left')`,
		doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE doctor_id = $1 AND status IN ('completed', 'skipped', 'left')
		ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
