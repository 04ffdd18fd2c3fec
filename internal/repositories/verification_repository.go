package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"moim/internal/models"
)

// VerificationRepository is the durable store of one-time codes.
// Every state transition is a conditional single-statement update so
// that concurrent verify calls for the same phone number cannot both
// win, and attempt increments are never lost.
type VerificationRepository interface {
	// Create supersedes any PENDING/VERIFIED row for the phone number
	// and inserts the new PENDING row in one transaction.
	Create(v *models.Verification) error
	// GetLatestByPhone returns the newest row for the number regardless
	// of status, or nil when the number was never sent a code.
	GetLatestByPhone(phone string) (*models.Verification, error)
	// MarkVerified transitions PENDING -> VERIFIED; false when the row
	// is no longer PENDING (lost race, expired, superseded).
	MarkVerified(id int64, at time.Time) (bool, error)
	// IncrementAttempts bumps the counter while the row is still
	// PENDING and returns the new value; 0 when the row left PENDING.
	IncrementAttempts(id int64) (int, error)
	MarkExpired(id int64) error
	MarkExhausted(id int64) error
	// Consume transitions VERIFIED -> CONSUMED keyed on phone number.
	// A non-zero cutoff additionally requires the proof to be newer
	// than it. False means there was no consumable proof.
	Consume(phone string, cutoff, at time.Time) (bool, error)
	// Restore undoes Consume (sign-up compensation).
	Restore(phone string) error
}

type verificationRepository struct {
	DB *sql.DB
}

func NewVerificationRepository(db *sql.DB) VerificationRepository {
	return &verificationRepository{DB: db}
}

func (r *verificationRepository) Create(v *models.Verification) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("verification create: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE verifications
		SET status = 'EXPIRED'
		WHERE phone_number = $1 AND status IN ('PENDING', 'VERIFIED')
	`, v.PhoneNumber); err != nil {
		return fmt.Errorf("verification supersede: %w", err)
	}

	if err := tx.QueryRow(`
		INSERT INTO verifications (phone_number, code_hash, status, attempts, created_at, expires_at)
		VALUES ($1, $2, 'PENDING', 0, $3, $4)
		RETURNING id
	`, v.PhoneNumber, v.CodeHash, v.CreatedAt, v.ExpiresAt).Scan(&v.ID); err != nil {
		return fmt.Errorf("verification insert: %w", err)
	}
	v.Status = models.VerificationPending

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("verification create: commit: %w", err)
	}
	return nil
}

func (r *verificationRepository) GetLatestByPhone(phone string) (*models.Verification, error) {
	const q = `
		SELECT id, phone_number, code_hash, status, attempts, created_at, expires_at, consumed_at
		FROM verifications
		WHERE phone_number = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	row := r.DB.QueryRow(q, phone)

	var v models.Verification
	var consumedAt sql.NullTime
	if err := row.Scan(
		&v.ID, &v.PhoneNumber, &v.CodeHash, &v.Status, &v.Attempts, &v.CreatedAt, &v.ExpiresAt, &consumedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("verification latest: %w", err)
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		v.ConsumedAt = &t
	}
	return &v, nil
}

func (r *verificationRepository) MarkVerified(id int64, at time.Time) (bool, error) {
	res, err := r.DB.Exec(`
		UPDATE verifications
		SET status = 'VERIFIED', consumed_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("verification mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *verificationRepository) IncrementAttempts(id int64) (int, error) {
	var attempts int
	err := r.DB.QueryRow(`
		UPDATE verifications
		SET attempts = attempts + 1
		WHERE id = $1 AND status = 'PENDING'
		RETURNING attempts
	`, id).Scan(&attempts)
	if err == sql.ErrNoRows {
		// row left PENDING under our feet
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("verification increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *verificationRepository) MarkExpired(id int64) error {
	_, err := r.DB.Exec(`
		UPDATE verifications SET status = 'EXPIRED'
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	return err
}

func (r *verificationRepository) MarkExhausted(id int64) error {
	_, err := r.DB.Exec(`
		UPDATE verifications SET status = 'EXHAUSTED'
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	return err
}

func (r *verificationRepository) Consume(phone string, cutoff, at time.Time) (bool, error) {
	res, err := r.DB.Exec(`
		UPDATE verifications
		SET status = 'CONSUMED', consumed_at = $3
		WHERE phone_number = $1 AND status = 'VERIFIED'
		  AND ($2::timestamptz IS NULL OR consumed_at >= $2)
	`, phone, nullableTime(cutoff), at)
	if err != nil {
		return false, fmt.Errorf("verification consume: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *verificationRepository) Restore(phone string) error {
	_, err := r.DB.Exec(`
		UPDATE verifications SET status = 'VERIFIED'
		WHERE phone_number = $1 AND status = 'CONSUMED'
	`, phone)
	return err
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
