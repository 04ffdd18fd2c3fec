package models

import (
	"errors"
	"regexp"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

var ErrInvalidBirthFormat = errors.New("birth must be YYYY-MM-DD")

var birthRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type User struct {
	ID          int64  `json:"id"`
	Nickname    string `json:"nickname"`
	PhoneNumber string `json:"phone_number"`

	// profile fields, owned by the profile subsystem
	Gender Gender `json:"gender,omitempty"`
	Birth  string `json:"birth,omitempty"`
	Region string `json:"region,omitempty"`

	// refresh bookkeeping: current jti + expiry, kept on the user row
	RefreshJTI       *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
	RefreshRevoked   bool       `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// SetBirth validates the YYYY-MM-DD format before assignment.
func (u *User) SetBirth(birth string) error {
	if !birthRe.MatchString(birth) {
		return ErrInvalidBirthFormat
	}
	u.Birth = birth
	return nil
}
