package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"moim/internal/models"
	"moim/internal/repositories"
)

// testClock — deterministic time source shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeNotifier records every send and can be told to fail.
type fakeNotifier struct {
	mu    sync.Mutex
	sends []string // "phone|text"
	err   error
}

func (n *fakeNotifier) Send(phone, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, phone+"|"+text)
	return n.err
}

// lastCode pulls the 6-digit code out of the most recent message.
func (n *fakeNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sends) == 0 {
		return ""
	}
	last := n.sends[len(n.sends)-1]
	return last[len(last)-6:]
}

func (n *fakeNotifier) sentTo(phone string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, s := range n.sends {
		if strings.HasPrefix(s, phone+"|") {
			count++
		}
	}
	return count
}

// memVerificationRepo mirrors the conditional-update contract of the
// SQL implementation under a single mutex.
type memVerificationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.Verification
}

func (r *memVerificationRepo) Create(v *models.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PhoneNumber == v.PhoneNumber &&
			(row.Status == models.VerificationPending || row.Status == models.VerificationVerified) {
			row.Status = models.VerificationExpired
		}
	}
	r.nextID++
	v.ID = r.nextID
	v.Status = models.VerificationPending
	cp := *v
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memVerificationRepo) GetLatestByPhone(phone string) (*models.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].PhoneNumber == phone {
			cp := *r.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memVerificationRepo) find(id int64) *models.Verification {
	for _, row := range r.rows {
		if row.ID == id {
			return row
		}
	}
	return nil
}

func (r *memVerificationRepo) MarkVerified(id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.find(id)
	if row == nil || row.Status != models.VerificationPending {
		return false, nil
	}
	row.Status = models.VerificationVerified
	t := at
	row.ConsumedAt = &t
	return true, nil
}

func (r *memVerificationRepo) IncrementAttempts(id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.find(id)
	if row == nil || row.Status != models.VerificationPending {
		return 0, nil
	}
	row.Attempts++
	return row.Attempts, nil
}

func (r *memVerificationRepo) MarkExpired(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row := r.find(id); row != nil && row.Status == models.VerificationPending {
		row.Status = models.VerificationExpired
	}
	return nil
}

func (r *memVerificationRepo) MarkExhausted(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row := r.find(id); row != nil && row.Status == models.VerificationPending {
		row.Status = models.VerificationExhausted
	}
	return nil
}

func (r *memVerificationRepo) Consume(phone string, cutoff, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PhoneNumber != phone || row.Status != models.VerificationVerified {
			continue
		}
		if !cutoff.IsZero() && (row.ConsumedAt == nil || row.ConsumedAt.Before(cutoff)) {
			continue
		}
		row.Status = models.VerificationConsumed
		t := at
		row.ConsumedAt = &t
		return true, nil
	}
	return false, nil
}

func (r *memVerificationRepo) Restore(phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PhoneNumber == phone && row.Status == models.VerificationConsumed {
			row.Status = models.VerificationVerified
		}
	}
	return nil
}

func (r *memVerificationRepo) statusOf(id int64) models.VerificationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row := r.find(id); row != nil {
		return row.Status
	}
	return ""
}

// memInvitationRepo — in-memory invitations with the same
// exactly-once redemption semantics as the SQL version.
type memInvitationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*models.Invitation
}

func newMemInvitationRepo() *memInvitationRepo {
	return &memInvitationRepo{rows: map[string]*models.Invitation{}}
}

func (r *memInvitationRepo) Create(inv *models.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[inv.Code]; ok {
		return errors.New("duplicate invitation code")
	}
	r.nextID++
	inv.ID = r.nextID
	inv.Status = models.InvitationIssued
	cp := *inv
	r.rows[inv.Code] = &cp
	return nil
}

func (r *memInvitationRepo) GetByCode(code string) (*models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[code]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memInvitationRepo) GetIssuedByPhone(phone string) (*models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Status == models.InvitationIssued && row.PhoneNumber != nil && *row.PhoneNumber == phone {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memInvitationRepo) Redeem(code, phone string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[code]
	if !ok || row.Status != models.InvitationIssued {
		return false, nil
	}
	if row.PhoneNumber != nil && *row.PhoneNumber != phone {
		return false, nil
	}
	row.Status = models.InvitationRedeemed
	t := at
	row.RedeemedAt = &t
	return true, nil
}

func (r *memInvitationRepo) Unredeem(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[code]; ok && row.Status == models.InvitationRedeemed {
		row.Status = models.InvitationIssued
		row.RedeemedAt = nil
	}
	return nil
}

func (r *memInvitationRepo) Revoke(code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[code]
	if !ok || row.Status != models.InvitationIssued {
		return false, nil
	}
	row.Status = models.InvitationRevoked
	return true, nil
}

func (r *memInvitationRepo) statusOf(code string) models.InvitationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[code]; ok {
		return row.Status
	}
	return ""
}

// memUserRepo — users keyed by phone number with a unique constraint.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int64]*models.User{}}
}

func (r *memUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.PhoneNumber == user.PhoneNumber {
			return repositories.ErrDuplicatePhone
		}
	}
	r.nextID++
	user.ID = r.nextID
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByPhone(phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) UpdateRefresh(userID int64, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return errors.New("user not found")
	}
	j := jti
	t := expiresAt
	u.RefreshJTI = &j
	u.RefreshExpiresAt = &t
	u.RefreshRevoked = false
	return nil
}

func (r *memUserRepo) RotateRefresh(oldJTI, newJTI string, newExpiresAt time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.RefreshJTI != nil && *u.RefreshJTI == oldJTI && !u.RefreshRevoked {
			j := newJTI
			t := newExpiresAt
			u.RefreshJTI = &j
			u.RefreshExpiresAt = &t
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ClearRefresh(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[userID]; ok {
		u.RefreshJTI = nil
		u.RefreshExpiresAt = nil
		u.RefreshRevoked = true
	}
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
