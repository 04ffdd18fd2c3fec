package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"moim/internal/models"
)

// ErrDuplicatePhone — the unique constraint on users.phone_number
// fired: somebody else registered the number first.
var ErrDuplicatePhone = errors.New("phone number already registered")

type UserRepository interface {
	// Create inserts the user; the unique index on phone_number makes
	// this the linearization point for concurrent sign-ups.
	Create(user *models.User) error
	GetByID(id int64) (*models.User, error)
	GetByPhone(phone string) (*models.User, error)

	// refresh helpers
	UpdateRefresh(userID int64, jti string, expiresAt time.Time) error
	// RotateRefresh swaps the stored jti only if oldJTI is still the
	// current one; nil user means the old token already lost (replay
	// or revocation).
	RotateRefresh(oldJTI, newJTI string, newExpiresAt time.Time) (*models.User, error)
	ClearRefresh(userID int64) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const uniqueViolation = "23505"

func (r *userRepository) Create(user *models.User) error {
	const q = `
		INSERT INTO users (nickname, phone_number, gender, birth, region, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id
	`
	err := r.DB.QueryRow(q,
		user.Nickname, user.PhoneNumber, string(user.Gender), user.Birth, user.Region, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id int64) (*models.User, error) {
	const q = `
		SELECT id, nickname, phone_number, gender, birth, region,
		       refresh_jti, refresh_expires_at, refresh_revoked, created_at
		FROM users
		WHERE id = $1
	`
	return r.scanOne(r.DB.QueryRow(q, id), "user by id")
}

func (r *userRepository) GetByPhone(phone string) (*models.User, error) {
	const q = `
		SELECT id, nickname, phone_number, gender, birth, region,
		       refresh_jti, refresh_expires_at, refresh_revoked, created_at
		FROM users
		WHERE phone_number = $1
	`
	return r.scanOne(r.DB.QueryRow(q, phone), "user by phone")
}

func (r *userRepository) scanOne(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var (
		gender sql.NullString
		birth  sql.NullString
		region sql.NullString
		jti    sql.NullString
		jtiExp sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Nickname, &u.PhoneNumber, &gender, &birth, &region,
		&jti, &jtiExp, &u.RefreshRevoked, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if gender.Valid {
		u.Gender = models.Gender(gender.String)
	}
	if birth.Valid {
		u.Birth = birth.String
	}
	if region.Valid {
		u.Region = region.String
	}
	if jti.Valid {
		s := jti.String
		u.RefreshJTI = &s
	}
	if jtiExp.Valid {
		t := jtiExp.Time
		u.RefreshExpiresAt = &t
	}
	return u, nil
}

// ===== refresh helpers =====

func (r *userRepository) UpdateRefresh(userID int64, jti string, expiresAt time.Time) error {
	_, err := r.DB.Exec(`
		UPDATE users
		SET refresh_jti = $1, refresh_expires_at = $2, refresh_revoked = FALSE
		WHERE id = $3
	`, jti, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("user update refresh: %w", err)
	}
	return nil
}

func (r *userRepository) RotateRefresh(oldJTI, newJTI string, newExpiresAt time.Time) (*models.User, error) {
	const q = `
		UPDATE users
		SET refresh_jti = $1, refresh_expires_at = $2
		WHERE refresh_jti = $3 AND NOT refresh_revoked
		RETURNING id, nickname, phone_number, gender, birth, region,
		          refresh_jti, refresh_expires_at, refresh_revoked, created_at
	`
	u, err := r.scanOne(r.DB.QueryRow(q, newJTI, newExpiresAt, oldJTI), "user rotate refresh")
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) ClearRefresh(userID int64) error {
	_, err := r.DB.Exec(`
		UPDATE users
		SET refresh_jti = NULL, refresh_expires_at = NULL, refresh_revoked = TRUE
		WHERE id = $1
	`, userID)
	return err
}
