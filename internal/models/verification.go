package models

import "time"

type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "PENDING"
	VerificationVerified  VerificationStatus = "VERIFIED"
	VerificationConsumed  VerificationStatus = "CONSUMED"
	VerificationExpired   VerificationStatus = "EXPIRED"
	VerificationExhausted VerificationStatus = "EXHAUSTED"
)

// Verification — one code sent to a phone number. Only the bcrypt
// hash of the code is stored (CodeHash), never the code itself.
// A phone number has at most one PENDING/VERIFIED row at a time:
// every new send supersedes the previous row.
type Verification struct {
	ID          int64              `json:"id"`
	PhoneNumber string             `json:"phone_number"`
	CodeHash    string             `json:"-"`
	Status      VerificationStatus `json:"status"`
	Attempts    int                `json:"attempts"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
	ConsumedAt  *time.Time         `json:"consumed_at,omitempty"`
}
