package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PostgresStore persists bookings in Postgres via pgx.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open pool. Run migrations.Up first.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectBookings = `
	SELECT id, name, email, student_id, dsps, slot, lab_location, exam_number,
		grade, graded_by, group_id, status, created_at, updated_at, legacy
	FROM bookings
	ORDER BY seq`

const upsertBooking = `
	INSERT INTO bookings (id, name, email, student_id, dsps, slot, lab_location, exam_number,
		grade, graded_by, group_id, status, created_at, updated_at, legacy)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		email = EXCLUDED.email,
		student_id = EXCLUDED.student_id,
		dsps = EXCLUDED.dsps,
		slot = EXCLUDED.slot,
		lab_location = EXCLUDED.lab_location,
		exam_number = EXCLUDED.exam_number,
		grade = EXCLUDED.grade,
		graded_by = EXCLUDED.graded_by,
		group_id = EXCLUDED.group_id,
		status = EXCLUDED.status,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at,
		legacy = EXCLUDED.legacy`

// LoadAll returns every row in insertion order.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectBookings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var (
			r                Record
			status           string
			created, updated sql.NullTime
			legacy           []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.StudentID, &r.DSPS, &r.Slot, &r.Campus, &r.Exam,
			&r.Grade, &r.GradedBy, &r.GroupID, &status, &created, &updated, &legacy); err != nil {
			return nil, err
		}
		r.Status = Status(status)
		r.CreatedAt = created.Time
		r.UpdatedAt = updated.Time
		if len(legacy) > 0 {
			if err := json.Unmarshal(legacy, &r.Legacy); err != nil {
				return nil, err
			}
			if len(r.Legacy) == 0 {
				r.Legacy = nil
			}
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// AppendOne inserts a row.
func (s *PostgresStore) AppendOne(ctx context.Context, r Record) error {
	args, err := upsertArgs(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertBooking, args...)
	return err
}

// OverwriteAll upserts every row in one transaction. Rows missing from the
// snapshot are left in place; nothing is ever deleted.
func (s *PostgresStore) OverwriteAll(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, upsertBooking)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		args, err := upsertArgs(r)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func upsertArgs(r Record) ([]any, error) {
	legacy := []byte("{}")
	if len(r.Legacy) > 0 {
		b, err := json.Marshal(r.Legacy)
		if err != nil {
			return nil, err
		}
		legacy = b
	}
	return []any{
		r.ID, r.Name, r.Email, r.StudentID, r.DSPS, r.Slot, r.Campus, r.Exam,
		r.Grade, r.GradedBy, r.GroupID, string(r.Status), nullTime(r.CreatedAt), nullTime(r.UpdatedAt), legacy,
	}, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
