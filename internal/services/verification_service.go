package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"moim/internal/models"
	"moim/internal/repositories"
	"moim/internal/utils"
)

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrResendThrottled    = errors.New("resend throttled")
	ErrNoActiveCode       = errors.New("no active code")
	ErrCodeExpired        = errors.New("code expired")
	ErrCodeInvalid        = errors.New("code invalid")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrNotificationFailed = errors.New("notification failed")
)

const (
	defaultCodeTTL        = 5 * time.Minute
	defaultResendCooldown = time.Minute
	defaultMaxAttempts    = 5
)

// Notifier delivers the one-time code out of band. Transport and
// provider are somebody else's problem.
type Notifier interface {
	Send(phone, text string) error
}

type VerificationService struct {
	Repo     repositories.VerificationRepository
	Notifier Notifier

	CodeTTL        time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	Now            func() time.Time
}

func NewVerificationService(repo repositories.VerificationRepository, notifier Notifier) *VerificationService {
	return &VerificationService{
		Repo:           repo,
		Notifier:       notifier,
		CodeTTL:        defaultCodeTTL,
		ResendCooldown: defaultResendCooldown,
		MaxAttempts:    defaultMaxAttempts,
		Now:            time.Now,
	}
}

// SendVerification sends a fresh code to the phone number. Any prior
// code for the number stops being valid the moment the new row lands,
// even inside its own TTL. A notifier failure does NOT roll the row
// back: the code stays verifiable and the client may ask for a resend.
func (s *VerificationService) SendVerification(phoneNumber string) error {
	phone, ok := utils.NormalizePhone(phoneNumber)
	if !ok {
		return ErrInvalidPhoneNumber
	}
	now := s.Now()

	latest, err := s.Repo.GetLatestByPhone(phone)
	if err != nil {
		return err
	}
	if latest != nil && latest.Status == models.VerificationPending &&
		now.Sub(latest.CreatedAt) < s.ResendCooldown {
		return ErrResendThrottled
	}

	code, err := utils.NewAuthCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("bcrypt generate: %w", err)
	}

	v := &models.Verification{
		PhoneNumber: phone,
		CodeHash:    string(hash),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.CodeTTL),
	}
	if err := s.Repo.Create(v); err != nil {
		return err
	}

	text := fmt.Sprintf("Verification code: %s", code)
	if err := s.Notifier.Send(phone, text); err != nil {
		log.Printf("[verify][send] notifier failed: phone=%s err=%v", phone, err)
		return ErrNotificationFailed
	}

	log.Printf("[verify][send] ok: phone=%s expires_at=%s", phone, v.ExpiresAt.Format(time.RFC3339))
	return nil
}

// VerifyAuthCode checks the presented code against the active record.
// The PENDING -> VERIFIED transition is a conditional update, so of
// two concurrent calls with the correct code exactly one succeeds.
func (s *VerificationService) VerifyAuthCode(phoneNumber, code string) (*models.Verification, error) {
	phone, ok := utils.NormalizePhone(phoneNumber)
	if !ok {
		return nil, ErrInvalidPhoneNumber
	}
	now := s.Now()

	v, err := s.Repo.GetLatestByPhone(phone)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNoActiveCode
	}
	switch v.Status {
	case models.VerificationPending:
		// fall through to the attempt below
	case models.VerificationExhausted:
		return nil, ErrTooManyAttempts
	case models.VerificationExpired:
		return nil, ErrCodeExpired
	default: // VERIFIED, CONSUMED
		return nil, ErrNoActiveCode
	}

	if now.After(v.ExpiresAt) {
		_ = s.Repo.MarkExpired(v.ID)
		return nil, ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)); err != nil {
		attempts, incErr := s.Repo.IncrementAttempts(v.ID)
		if incErr != nil {
			return nil, incErr
		}
		if attempts >= s.MaxAttempts {
			_ = s.Repo.MarkExhausted(v.ID)
			return nil, ErrTooManyAttempts
		}
		return nil, ErrCodeInvalid
	}

	verified, err := s.Repo.MarkVerified(v.ID, now)
	if err != nil {
		return nil, err
	}
	if !verified {
		// somebody else consumed or superseded the row first
		return nil, ErrNoActiveCode
	}

	v.Status = models.VerificationVerified
	v.ConsumedAt = &now
	log.Printf("[verify][confirm] ok: phone=%s", phone)
	return v, nil
}

// ConsumeProof marks the VERIFIED record as used up by sign-up.
// With maxAge > 0 a proof older than that no longer counts. False
// means there was nothing consumable.
func (s *VerificationService) ConsumeProof(phone string, maxAge time.Duration) (bool, error) {
	now := s.Now()
	var cutoff time.Time
	if maxAge > 0 {
		cutoff = now.Add(-maxAge)
	}
	return s.Repo.Consume(phone, cutoff, now)
}

// RestoreProof reverts ConsumeProof when a later sign-up step failed.
func (s *VerificationService) RestoreProof(phone string) error {
	return s.Repo.Restore(phone)
}
