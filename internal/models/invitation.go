package models

import "time"

type InvitationStatus string

const (
	InvitationIssued   InvitationStatus = "ISSUED"
	InvitationRedeemed InvitationStatus = "REDEEMED"
	InvitationRevoked  InvitationStatus = "REVOKED"
)

// Invitation — a single-use code gating account creation.
// PhoneNumber, when set, scopes the code to one phone number.
// Rows are never deleted: REDEEMED/REVOKED stay as the audit trail.
type Invitation struct {
	ID          int64            `json:"id"`
	Code        string           `json:"code"`
	PhoneNumber *string          `json:"phone_number,omitempty"`
	IssuedBy    *int64           `json:"issued_by,omitempty"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RedeemedAt  *time.Time       `json:"redeemed_at,omitempty"`
}
