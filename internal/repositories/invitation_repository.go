package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"moim/internal/models"
)

// InvitationRepository — invitation codes and their redemption state.
// Redemption is a single conditional update: out of any number of
// concurrent redeemers exactly one sees rows-affected = 1.
type InvitationRepository interface {
	Create(inv *models.Invitation) error
	GetByCode(code string) (*models.Invitation, error)
	// GetIssuedByPhone returns an ISSUED invitation scoped to the
	// phone number, or nil when there is none.
	GetIssuedByPhone(phone string) (*models.Invitation, error)
	// Redeem transitions ISSUED -> REDEEMED when the code exists, is
	// ISSUED and is either unscoped or scoped to the given number.
	Redeem(code, phone string, at time.Time) (bool, error)
	// Unredeem reverses a redemption (sign-up compensation).
	Unredeem(code string) error
	Revoke(code string) (bool, error)
}

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{DB: db}
}

func (r *invitationRepository) Create(inv *models.Invitation) error {
	const q = `
		INSERT INTO invitations (code, phone_number, issued_by, status, created_at)
		VALUES ($1, $2, $3, 'ISSUED', $4)
		RETURNING id
	`
	if err := r.DB.QueryRow(q, inv.Code, inv.PhoneNumber, inv.IssuedBy, inv.CreatedAt).Scan(&inv.ID); err != nil {
		return fmt.Errorf("invitation create: %w", err)
	}
	inv.Status = models.InvitationIssued
	return nil
}

func (r *invitationRepository) GetByCode(code string) (*models.Invitation, error) {
	const q = `
		SELECT id, code, phone_number, issued_by, status, created_at, redeemed_at
		FROM invitations
		WHERE code = $1
	`
	return r.scanOne(r.DB.QueryRow(q, code), "invitation by code")
}

func (r *invitationRepository) GetIssuedByPhone(phone string) (*models.Invitation, error) {
	const q = `
		SELECT id, code, phone_number, issued_by, status, created_at, redeemed_at
		FROM invitations
		WHERE phone_number = $1 AND status = 'ISSUED'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.DB.QueryRow(q, phone), "invitation by phone")
}

func (r *invitationRepository) scanOne(row *sql.Row, op string) (*models.Invitation, error) {
	var inv models.Invitation
	var phone sql.NullString
	var issuedBy sql.NullInt64
	var redeemedAt sql.NullTime
	if err := row.Scan(
		&inv.ID, &inv.Code, &phone, &issuedBy, &inv.Status, &inv.CreatedAt, &redeemedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if phone.Valid {
		s := phone.String
		inv.PhoneNumber = &s
	}
	if issuedBy.Valid {
		n := issuedBy.Int64
		inv.IssuedBy = &n
	}
	if redeemedAt.Valid {
		t := redeemedAt.Time
		inv.RedeemedAt = &t
	}
	return &inv, nil
}

func (r *invitationRepository) Redeem(code, phone string, at time.Time) (bool, error) {
	res, err := r.DB.Exec(`
		UPDATE invitations
		SET status = 'REDEEMED', redeemed_at = $3
		WHERE code = $1 AND status = 'ISSUED'
		  AND (phone_number IS NULL OR phone_number = $2)
	`, code, phone, at)
	if err != nil {
		return false, fmt.Errorf("invitation redeem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitationRepository) Unredeem(code string) error {
	_, err := r.DB.Exec(`
		UPDATE invitations SET status = 'ISSUED', redeemed_at = NULL
		WHERE code = $1 AND status = 'REDEEMED'
	`, code)
	return err
}

func (r *invitationRepository) Revoke(code string) (bool, error) {
	res, err := r.DB.Exec(`
		UPDATE invitations SET status = 'REVOKED'
		WHERE code = $1 AND status = 'ISSUED'
	`, code)
	if err != nil {
		return false, fmt.Errorf("invitation revoke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
