package services

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"moim/internal/models"
	"moim/internal/repositories"
	"moim/internal/utils"
)

var (
	ErrPhoneNotVerified       = errors.New("phone number not verified")
	ErrPhoneAlreadyRegistered = errors.New("phone number already registered")
	ErrNicknameRequired       = errors.New("nickname required")
)

// AuthService composes verification, invitations, user persistence
// and the token issuer into the two user-facing flows: verify-and-log-in
// and sign-up.
type AuthService struct {
	Verifications *VerificationService
	Invitations   *InvitationService
	Tokens        *TokenService
	Users         repositories.UserRepository

	// VerifiedTTL bounds how long a VERIFIED proof stays usable for
	// sign-up. Zero means it holds until consumed or superseded.
	VerifiedTTL time.Duration
	Now         func() time.Time
}

func NewAuthService(
	verifications *VerificationService,
	invitations *InvitationService,
	tokens *TokenService,
	users repositories.UserRepository,
) *AuthService {
	return &AuthService{
		Verifications: verifications,
		Invitations:   invitations,
		Tokens:        tokens,
		Users:         users,
		Now:           time.Now,
	}
}

// SignUp creates the account for a phone number that holds an
// unconsumed VERIFIED proof and a redeemable invitation.
//
// Step order is chosen so every failure leaves no residue:
//  1. consume the proof (conditional; a miss means not verified, and
//     concurrent sign-ups for one number race exactly here);
//  2. redeem the invitation (conditional; on failure the proof is
//     restored);
//  3. insert the user (unique phone; on duplicate both prior steps
//     are compensated);
//  4. issue the token pair.
func (s *AuthService) SignUp(nickname, phoneNumber, invitationCode string) (*models.User, *models.TokenPair, *http.Cookie, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, nil, nil, ErrNicknameRequired
	}
	phone, ok := utils.NormalizePhone(phoneNumber)
	if !ok {
		return nil, nil, nil, ErrInvalidPhoneNumber
	}

	consumed, err := s.Verifications.ConsumeProof(phone, s.VerifiedTTL)
	if err != nil {
		return nil, nil, nil, err
	}
	if !consumed {
		return nil, nil, nil, ErrPhoneNotVerified
	}

	if err := s.Invitations.Redeem(invitationCode, phone); err != nil {
		if restoreErr := s.Verifications.RestoreProof(phone); restoreErr != nil {
			log.Printf("[auth][sign-up] restore proof failed: phone=%s err=%v", phone, restoreErr)
		}
		return nil, nil, nil, err
	}

	user := &models.User{
		Nickname:    nickname,
		PhoneNumber: phone,
		CreatedAt:   s.Now(),
	}
	if err := s.Users.Create(user); err != nil {
		s.compensateSignUp(invitationCode, phone)
		if errors.Is(err, repositories.ErrDuplicatePhone) {
			return nil, nil, nil, ErrPhoneAlreadyRegistered
		}
		return nil, nil, nil, err
	}

	pair, err := s.Tokens.Issue(user.ID)
	if err != nil {
		// the account exists; the client can still log in via verify
		log.Printf("[auth][sign-up] token issue failed: user_id=%d err=%v", user.ID, err)
		return nil, nil, nil, err
	}

	log.Printf("[auth][sign-up] ok: user_id=%d phone=%s", user.ID, phone)
	return user, pair, s.Tokens.RefreshCookie(pair.RefreshToken), nil
}

func (s *AuthService) compensateSignUp(invitationCode, phone string) {
	if err := s.Invitations.Unredeem(invitationCode); err != nil {
		log.Printf("[auth][sign-up] unredeem failed: code=%s err=%v", invitationCode, err)
	}
	if err := s.Verifications.RestoreProof(phone); err != nil {
		log.Printf("[auth][sign-up] restore proof failed: phone=%s err=%v", phone, err)
	}
}

// VerifyAndLogIn verifies the code; when an account already exists
// for the number it logs the user in. A nil user with nil error means
// "verified, no account yet" — the client proceeds to sign-up and the
// proof stays available for it.
func (s *AuthService) VerifyAndLogIn(phoneNumber, code string) (*models.User, *models.TokenPair, *http.Cookie, error) {
	v, err := s.Verifications.VerifyAuthCode(phoneNumber, code)
	if err != nil {
		return nil, nil, nil, err
	}

	user, err := s.Users.GetByPhone(v.PhoneNumber)
	if err != nil {
		return nil, nil, nil, err
	}
	if user == nil {
		return nil, nil, nil, nil
	}

	// the proof served as login, it must not double as a sign-up proof
	if _, err := s.Verifications.ConsumeProof(v.PhoneNumber, 0); err != nil {
		log.Printf("[auth][login] consume proof failed: phone=%s err=%v", v.PhoneNumber, err)
	}

	pair, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Printf("[auth][login] ok: user_id=%d", user.ID)
	return user, pair, s.Tokens.RefreshCookie(pair.RefreshToken), nil
}

// Refresh rotates the refresh token from the cookie.
func (s *AuthService) Refresh(refreshToken string) (*models.User, *models.TokenPair, *http.Cookie, error) {
	user, pair, err := s.Tokens.Refresh(refreshToken)
	if err != nil {
		return nil, nil, nil, err
	}
	return user, pair, s.Tokens.RefreshCookie(pair.RefreshToken), nil
}

// SignOut revokes the current refresh token and hands back the
// cookie that clears it client-side.
func (s *AuthService) SignOut(userID int64) (*http.Cookie, error) {
	if err := s.Tokens.Revoke(userID); err != nil {
		return nil, err
	}
	log.Printf("[auth][sign-out] ok: user_id=%d", userID)
	return s.Tokens.ClearedRefreshCookie(), nil
}
