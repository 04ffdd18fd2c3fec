package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"moim/internal/models"
	"moim/internal/repositories"
	"moim/internal/utils"
)

var (
	ErrInvalidInvitation = errors.New("invalid invitation")
	ErrPhoneMismatch     = errors.New("invitation issued to a different phone number")
)

type InvitationService struct {
	Repo repositories.InvitationRepository
	Now  func() time.Time
}

func NewInvitationService(repo repositories.InvitationRepository) *InvitationService {
	return &InvitationService{Repo: repo, Now: time.Now}
}

// GetInvitation returns an ISSUED invitation scoped to the phone
// number, or nil when none exists. Read-only.
func (s *InvitationService) GetInvitation(phoneNumber string) (*models.Invitation, error) {
	phone, ok := utils.NormalizePhone(phoneNumber)
	if !ok {
		return nil, ErrInvalidPhoneNumber
	}
	return s.Repo.GetIssuedByPhone(phone)
}

// Redeem burns the invitation for the given phone number. The
// ISSUED -> REDEEMED transition happens as one conditional update, so
// two concurrent sign-ups presenting the same code cannot both pass;
// the second read below only classifies the failure.
func (s *InvitationService) Redeem(code, phoneNumber string) error {
	phone, ok := utils.NormalizePhone(phoneNumber)
	if !ok {
		return ErrInvalidPhoneNumber
	}

	redeemed, err := s.Repo.Redeem(code, phone, s.Now())
	if err != nil {
		return err
	}
	if redeemed {
		log.Printf("[invitation][redeem] ok: code=%s phone=%s", code, phone)
		return nil
	}

	inv, err := s.Repo.GetByCode(code)
	if err != nil {
		return err
	}
	if inv != nil && inv.Status == models.InvitationIssued &&
		inv.PhoneNumber != nil && *inv.PhoneNumber != phone {
		return ErrPhoneMismatch
	}
	return ErrInvalidInvitation
}

// Unredeem puts the code back to ISSUED. Used only as compensation
// when a sign-up fails after its redemption step.
func (s *InvitationService) Unredeem(code string) error {
	return s.Repo.Unredeem(code)
}

// Issue mints a new invitation, optionally scoped to a phone number
// and attributed to the inviting user.
func (s *InvitationService) Issue(phoneNumber *string, issuedBy *int64) (*models.Invitation, error) {
	var scoped *string
	if phoneNumber != nil {
		phone, ok := utils.NormalizePhone(*phoneNumber)
		if !ok {
			return nil, ErrInvalidPhoneNumber
		}
		scoped = &phone
	}

	code, err := utils.NewInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("generate invitation code: %w", err)
	}
	inv := &models.Invitation{
		Code:        code,
		PhoneNumber: scoped,
		IssuedBy:    issuedBy,
		CreatedAt:   s.Now(),
	}
	if err := s.Repo.Create(inv); err != nil {
		return nil, err
	}
	log.Printf("[invitation][issue] ok: code=%s", inv.Code)
	return inv, nil
}

// Revoke is the administrative kill switch for an unredeemed code.
func (s *InvitationService) Revoke(code string) error {
	revoked, err := s.Repo.Revoke(code)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrInvalidInvitation
	}
	return nil
}
