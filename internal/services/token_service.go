package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"moim/internal/models"
	"moim/internal/repositories"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour

	// RefreshCookieName carries the refresh token; the access token
	// never goes into a cookie.
	RefreshCookieName = "refresh_token"
)

// AccessClaims authenticate regular API calls.
type AccessClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// RefreshClaims live only inside the refresh cookie. The jti
// (RegisteredClaims.ID) is persisted per user so an old token loses
// on rotation.
type RefreshClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenService struct {
	Users         repositories.UserRepository
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func NewTokenService(users repositories.UserRepository, accessSecret, refreshSecret []byte) *TokenService {
	return &TokenService{
		Users:         users,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     defaultAccessTTL,
		RefreshTTL:    defaultRefreshTTL,
		Now:           time.Now,
	}
}

// Issue mints a fresh access/refresh pair for the user and records
// the refresh jti on the user row.
func (s *TokenService) Issue(userID int64) (*models.TokenPair, error) {
	now := s.Now()

	access, err := s.signAccess(userID, now)
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refreshExp := now.Add(s.RefreshTTL)
	refresh, err := s.signRefresh(userID, jti, now, refreshExp)
	if err != nil {
		return nil, err
	}
	if err := s.Users.UpdateRefresh(userID, jti, refreshExp); err != nil {
		return nil, err
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates the presented refresh token and rotates it: the
// stored jti is swapped conditionally, so replaying the old token
// after rotation fails with ErrInvalidToken.
func (s *TokenService) Refresh(refreshToken string) (*models.User, *models.TokenPair, error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.RefreshSecret, nil
	}, jwt.WithTimeFunc(s.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, ErrTokenExpired
		}
		return nil, nil, ErrInvalidToken
	}
	if !token.Valid || claims.ID == "" {
		return nil, nil, ErrInvalidToken
	}

	now := s.Now()
	newJTI := uuid.NewString()
	refreshExp := now.Add(s.RefreshTTL)
	user, err := s.Users.RotateRefresh(claims.ID, newJTI, refreshExp)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		// already rotated or revoked: replay
		return nil, nil, ErrInvalidToken
	}

	access, err := s.signAccess(user.ID, now)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.signRefresh(user.ID, newJTI, now, refreshExp)
	if err != nil {
		return nil, nil, err
	}
	return user, &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Revoke invalidates the user's current refresh token (sign-out).
func (s *TokenService) Revoke(userID int64) error {
	return s.Users.ClearRefresh(userID)
}

// RefreshCookie wraps the refresh token into its cookie descriptor:
// HttpOnly + Secure + SameSite=Strict, lifetime matching the token.
func (s *TokenService) RefreshCookie(refreshToken string) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/auth",
		MaxAge:   int(s.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearedRefreshCookie expires the refresh cookie on the client.
func (s *TokenService) ClearedRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *TokenService) signAccess(userID int64, now time.Time) (string, error) {
	claims := &AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.AccessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) signRefresh(userID int64, jti string, now, exp time.Time) (string, error) {
	claims := &RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}
