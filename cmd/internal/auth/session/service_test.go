package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"promodesk/cmd/identity"
	"promodesk/cmd/security/token"
)

// cheapHashing lowers Argon2id cost for the suite; the default profile is
// sized for production logins, not unit tests.
func cheapHashing(t *testing.T) {
	t.Helper()
	t.Setenv("PROMODESK_ARGON2_MEMORY_KIB", "16384")
	t.Setenv("PROMODESK_ARGON2_ITERATIONS", "1")
	t.Setenv("PROMODESK_ARGON2_PARALLELISM", "1")
}

// ---- fakes ----

type fakeDirectory struct {
	users map[string]identity.User // by id

	lastLoginCalls int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]identity.User{}}
}

func (d *fakeDirectory) add(u identity.User) { d.users[u.ID] = u }

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (identity.User, error) {
	norm := identity.NormalizeEmail(email)
	for _, u := range d.users {
		if identity.NormalizeEmail(u.Email) == norm {
			return u, nil
		}
	}
	return identity.User{}, identity.OpError{Op: "fake.FindByEmail", Kind: identity.ErrNotFound}
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (identity.User, error) {
	u, ok := d.users[id]
	if !ok {
		return identity.User{}, identity.OpError{Op: "fake.FindByID", Kind: identity.ErrNotFound}
	}
	return u, nil
}

func (d *fakeDirectory) Create(_ context.Context, _ identity.CreateUserInput) (identity.User, error) {
	return identity.User{}, errors.New("not implemented")
}

func (d *fakeDirectory) List(_ context.Context) ([]identity.User, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDirectory) UpdateFields(_ context.Context, _ string, _ identity.UpdateFieldsInput) (identity.User, error) {
	return identity.User{}, errors.New("not implemented")
}

func (d *fakeDirectory) UpdatePasswordHash(_ context.Context, id string, hash string, _ time.Time) error {
	u, ok := d.users[id]
	if !ok {
		return identity.OpError{Op: "fake.UpdatePasswordHash", Kind: identity.ErrNotFound}
	}
	u.PasswordHash = hash
	d.users[id] = u
	return nil
}

func (d *fakeDirectory) IncrementTokenVersion(_ context.Context, id string) (int64, error) {
	u, ok := d.users[id]
	if !ok {
		return 0, identity.OpError{Op: "fake.IncrementTokenVersion", Kind: identity.ErrNotFound}
	}
	u.TokenVersion++
	d.users[id] = u
	return u.TokenVersion, nil
}

func (d *fakeDirectory) SetLastLogin(_ context.Context, id string, now time.Time) error {
	u, ok := d.users[id]
	if !ok {
		return identity.OpError{Op: "fake.SetLastLogin", Kind: identity.ErrNotFound}
	}
	t := now
	u.LastLoginAt = &t
	d.users[id] = u
	d.lastLoginCalls++
	return nil
}

type fakeStore struct {
	refresh map[string]RefreshRecord
	reset   map[string]ResetRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		refresh: map[string]RefreshRecord{},
		reset:   map[string]ResetRecord{},
	}
}

func (s *fakeStore) SaveRefresh(_ context.Context, userID, tokenID string, now, expiresAt time.Time) error {
	if _, ok := s.refresh[tokenID]; ok {
		return nil
	}
	s.refresh[tokenID] = RefreshRecord{UserID: userID, TokenID: tokenID, CreatedAt: now, ExpiresAt: expiresAt}
	return nil
}

func (s *fakeStore) FindValidRefresh(_ context.Context, tokenID, userID string, now time.Time) (RefreshRecord, error) {
	rec, ok := s.refresh[tokenID]
	if !ok || rec.UserID != userID || !rec.ExpiresAt.After(now) {
		return RefreshRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *fakeStore) DeleteRefresh(_ context.Context, tokenID string) (bool, error) {
	if _, ok := s.refresh[tokenID]; !ok {
		return false, nil
	}
	delete(s.refresh, tokenID)
	return true, nil
}

func (s *fakeStore) DeleteAllRefreshForUser(_ context.Context, userID string) error {
	for id, rec := range s.refresh {
		if rec.UserID == userID {
			delete(s.refresh, id)
		}
	}
	return nil
}

func (s *fakeStore) SaveReset(_ context.Context, userID, tokenID string, now, expiresAt time.Time) error {
	if _, ok := s.reset[tokenID]; ok {
		return nil
	}
	s.reset[tokenID] = ResetRecord{UserID: userID, TokenID: tokenID, CreatedAt: now, ExpiresAt: expiresAt}
	return nil
}

func (s *fakeStore) ConsumeReset(_ context.Context, tokenID, userID string, now time.Time) (bool, error) {
	rec, ok := s.reset[tokenID]
	if !ok || rec.UserID != userID || rec.Used || !rec.ExpiresAt.After(now) {
		return false, nil
	}
	t := now
	rec.Used = true
	rec.UsedAt = &t
	s.reset[tokenID] = rec
	return true, nil
}

func (s *fakeStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, rec := range s.refresh {
		if !rec.ExpiresAt.After(now) {
			delete(s.refresh, id)
			n++
		}
	}
	for id, rec := range s.reset {
		if rec.Used || !rec.ExpiresAt.After(now) {
			delete(s.reset, id)
			n++
		}
	}
	return n, nil
}

// flakyStore injects a lookup failure over a working fakeStore.
type flakyStore struct {
	*fakeStore
	findErr     error
	deleteCalls int
}

func (s *flakyStore) FindValidRefresh(ctx context.Context, tokenID, userID string, now time.Time) (RefreshRecord, error) {
	if s.findErr != nil {
		return RefreshRecord{}, s.findErr
	}
	return s.fakeStore.FindValidRefresh(ctx, tokenID, userID, now)
}

func (s *flakyStore) DeleteRefresh(ctx context.Context, tokenID string) (bool, error) {
	s.deleteCalls++
	return s.fakeStore.DeleteRefresh(ctx, tokenID)
}

type fakeMailer struct {
	sent []string // recipient addresses
	err  error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

// ---- harness ----

type harness struct {
	svc    *Service
	dir    *fakeDirectory
	store  *fakeStore
	mailer *fakeMailer
	tokens *token.Issuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cheapHashing(t)

	tcfg := token.DefaultConfig()
	tcfg.AccessSecret = []byte(strings.Repeat("a", 32))
	tcfg.RefreshSecret = []byte(strings.Repeat("b", 32))
	tcfg.ResetSecret = []byte(strings.Repeat("c", 32))
	iss, err := token.NewIssuer(tcfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	dir := newFakeDirectory()
	store := newFakeStore()
	mailer := &fakeMailer{}

	return &harness{
		svc:    NewService(DefaultConfig(), dir, store, iss, mailer, nil),
		dir:    dir,
		store:  store,
		mailer: mailer,
		tokens: iss,
	}
}

func (h *harness) addUser(t *testing.T, email, password string, active bool) identity.User {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := identity.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		Role:         identity.RoleManager,
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	h.dir.add(u)
	return u
}

// ---- login ----

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if issued.User.ID != u.ID {
		t.Fatalf("user: got %q", issued.User.ID)
	}
	if issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}
	if len(h.store.refresh) != 1 {
		t.Fatalf("expected 1 refresh record, got %d", len(h.store.refresh))
	}
	if h.dir.lastLoginCalls != 1 {
		t.Fatalf("expected last-login update")
	}
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "dev@example.com", "correct horse battery", true)
	h.addUser(t, "gone@example.com", "correct horse battery", false)

	now := time.Now().UTC()
	cases := []struct {
		name            string
		email, password string
	}{
		{"unknown email", "nobody@example.com", "correct horse battery"},
		{"wrong password", "dev@example.com", "wrong password here"},
		{"inactive user", "gone@example.com", "correct horse battery"},
	}
	for _, tc := range cases {
		_, err := h.svc.Login(context.Background(), now, tc.email, tc.password)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.name, err)
		}
	}
	if len(h.store.refresh) != 0 {
		t.Fatalf("no record should exist after failed logins")
	}
}

// ---- refresh rotation ----

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	first, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	second, err := h.svc.Refresh(context.Background(), now.Add(time.Minute), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("rotation must issue a new refresh token")
	}
	if len(h.store.refresh) != 1 {
		t.Fatalf("expected exactly 1 live record, got %d", len(h.store.refresh))
	}

	// Replaying the rotated token finds no record.
	if _, err := h.svc.Refresh(context.Background(), now.Add(2*time.Minute), first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replay: expected ErrInvalidRefreshToken, got %v", err)
	}

	// The replacement still works.
	if _, err := h.svc.Refresh(context.Background(), now.Add(3*time.Minute), second.RefreshToken); err != nil {
		t.Fatalf("chained refresh: %v", err)
	}
}

func TestRefresh_VersionMismatchDeletesRecord(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Version bump out of band (e.g. admin action) invalidates the token.
	if _, err := h.dir.IncrementTokenVersion(context.Background(), u.ID); err != nil {
		t.Fatalf("IncrementTokenVersion: %v", err)
	}

	if _, err := h.svc.Refresh(context.Background(), now.Add(time.Minute), issued.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if len(h.store.refresh) != 0 {
		t.Fatalf("mismatched record must be deleted")
	}
}

func TestRefresh_ExpiredRecordRejected(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Jump past the refresh TTL; both the JWT and the record are expired.
	late := now.Add(8 * 24 * time.Hour)
	if _, err := h.svc.Refresh(context.Background(), late, issued.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_StaleRecordDeleted(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Expire the record while the signed token itself is still valid.
	for id, rec := range h.store.refresh {
		rec.ExpiresAt = now.Add(-time.Minute)
		h.store.refresh[id] = rec
	}

	if _, err := h.svc.Refresh(context.Background(), now.Add(time.Minute), issued.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if len(h.store.refresh) != 0 {
		t.Fatalf("stale record must be deleted")
	}
}

func TestRefresh_StoreFailureIsNotInvalidToken(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A DB blip during lookup must surface as-is, not as a rejected token;
	// the handler maps ErrInvalidRefreshToken to a cookie-clearing 401.
	dbErr := errors.New("connection reset")
	flaky := &flakyStore{fakeStore: h.store, findErr: dbErr}
	svc := NewService(DefaultConfig(), h.dir, flaky, h.tokens, h.mailer, nil)

	_, err = svc.Refresh(context.Background(), now.Add(time.Minute), issued.RefreshToken)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected the store error, got %v", err)
	}
	if errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("store failure must not be normalized to ErrInvalidRefreshToken")
	}
	if flaky.deleteCalls != 0 {
		t.Fatalf("record must not be deleted on a store failure")
	}

	// The session survives; the same token works once the store recovers.
	flaky.findErr = nil
	if _, err := svc.Refresh(context.Background(), now.Add(2*time.Minute), issued.RefreshToken); err != nil {
		t.Fatalf("refresh after recovery: %v", err)
	}
}

func TestRefresh_InactiveUserRejected(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	u = h.dir.users[u.ID]
	u.IsActive = false
	h.dir.add(u)

	if _, err := h.svc.Refresh(context.Background(), now.Add(time.Minute), issued.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if len(h.store.refresh) != 0 {
		t.Fatalf("record for deactivated user must be deleted")
	}
}

// ---- logout ----

func TestLogout_RemovesRecordAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	userID, err := h.svc.Logout(context.Background(), now, issued.RefreshToken)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if userID != u.ID {
		t.Fatalf("expected user id for verified logout, got %q", userID)
	}
	if len(h.store.refresh) != 0 {
		t.Fatalf("record must be removed")
	}

	// Second logout with the same token: silent success, no id.
	userID, err = h.svc.Logout(context.Background(), now, issued.RefreshToken)
	if err != nil {
		t.Fatalf("repeat Logout: %v", err)
	}
	if userID != u.ID {
		t.Fatalf("token still verifies; expected same user id")
	}

	// Garbage token: also silent.
	userID, err = h.svc.Logout(context.Background(), now, "garbage")
	if err != nil || userID != "" {
		t.Fatalf("garbage logout: got (%q, %v)", userID, err)
	}
}

// ---- invalidate all ----

func TestInvalidateAllSessions(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	issued, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if len(h.store.refresh) != 2 {
		t.Fatalf("expected 2 records, got %d", len(h.store.refresh))
	}

	if err := h.svc.InvalidateAllSessions(context.Background(), u.ID); err != nil {
		t.Fatalf("InvalidateAllSessions: %v", err)
	}

	if h.dir.users[u.ID].TokenVersion != 1 {
		t.Fatalf("token version must be bumped")
	}
	if len(h.store.refresh) != 0 {
		t.Fatalf("all records must be purged")
	}

	if _, err := h.svc.Refresh(context.Background(), now.Add(time.Minute), issued.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("old refresh token must be dead, got %v", err)
	}
}

// ---- password reset ----

func TestRequestPasswordReset_UnknownEmailSilent(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	res, err := h.svc.RequestPasswordReset(context.Background(), now, "nobody@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if res.UserID != "" || res.TokenID != "" {
		t.Fatalf("expected zero result, got %+v", res)
	}
	if len(h.store.reset) != 0 {
		t.Fatalf("no record for unknown email")
	}
	if len(h.mailer.sent) != 0 {
		t.Fatalf("no mail for unknown email")
	}
}

func TestRequestPasswordReset_InactiveSilent(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "gone@example.com", "correct horse battery", false)

	res, err := h.svc.RequestPasswordReset(context.Background(), time.Now().UTC(), "gone@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if res.UserID != "" || len(h.store.reset) != 0 || len(h.mailer.sent) != 0 {
		t.Fatalf("inactive user must look like an unknown one")
	}
}

func TestRequestPasswordReset_PersistsBeforeMailFailure(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)
	h.mailer.err = errors.New("smtp down")

	res, err := h.svc.RequestPasswordReset(context.Background(), time.Now().UTC(), "dev@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if res.UserID != u.ID {
		t.Fatalf("expected user id")
	}
	// Send failed but the record survives; the flow can be completed later.
	if len(h.store.reset) != 1 {
		t.Fatalf("record must be persisted despite mail failure")
	}
}

func TestResetPassword_FullFlow(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	if _, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	resetToken, _, _, err := h.tokens.IssueReset(now, u.ID, 0)
	if err != nil {
		t.Fatalf("IssueReset: %v", err)
	}
	claims, err := h.tokens.VerifyReset(resetToken, now)
	if err != nil {
		t.Fatalf("VerifyReset: %v", err)
	}
	if err := h.store.SaveReset(context.Background(), u.ID, claims.TokenID, now, claims.ExpiresAt); err != nil {
		t.Fatalf("SaveReset: %v", err)
	}

	userID, err := h.svc.ResetPassword(context.Background(), now.Add(time.Minute), resetToken, "brand new password 42")
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if userID != u.ID {
		t.Fatalf("expected user id")
	}

	// Every session is gone and the version is bumped.
	if len(h.store.refresh) != 0 {
		t.Fatalf("refresh records must be purged")
	}
	if h.dir.users[u.ID].TokenVersion != 1 {
		t.Fatalf("token version must be bumped")
	}

	// Old password dead, new one works.
	if _, err := h.svc.Login(context.Background(), now, "dev@example.com", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := h.svc.Login(context.Background(), now, "dev@example.com", "brand new password 42"); err != nil {
		t.Fatalf("new password login: %v", err)
	}

	// Single use: the same token cannot run again.
	if _, err := h.svc.ResetPassword(context.Background(), now.Add(2*time.Minute), resetToken, "another password 42"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("reuse: expected ErrInvalidResetToken, got %v", err)
	}
}

func TestResetPassword_PolicyRejectionDoesNotBurnToken(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "dev@example.com", "correct horse battery", true)

	now := time.Now().UTC()
	resetToken, tokenID, exp, err := h.tokens.IssueReset(now, u.ID, 0)
	if err != nil {
		t.Fatalf("IssueReset: %v", err)
	}
	if err := h.store.SaveReset(context.Background(), u.ID, tokenID, now, exp); err != nil {
		t.Fatalf("SaveReset: %v", err)
	}

	_, err = h.svc.ResetPassword(context.Background(), now.Add(time.Minute), resetToken, "short")
	if !identity.IsInvalidInput(err) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
	if h.store.reset[tokenID].Used {
		t.Fatalf("policy rejection must not consume the record")
	}

	// Retry with a compliant password succeeds.
	if _, err := h.svc.ResetPassword(context.Background(), now.Add(2*time.Minute), resetToken, "brand new password 42"); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestResetPassword_GarbageToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ResetPassword(context.Background(), time.Now().UTC(), "garbage", "brand new password 42")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

// ---- sweep ----

func TestSweepExpired(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()

	_ = h.store.SaveRefresh(context.Background(), "u1", "r-old", now.Add(-2*time.Hour), now.Add(-time.Hour))
	_ = h.store.SaveRefresh(context.Background(), "u1", "r-live", now, now.Add(time.Hour))
	_ = h.store.SaveReset(context.Background(), "u1", "p-old", now.Add(-2*time.Hour), now.Add(-time.Hour))
	_ = h.store.SaveReset(context.Background(), "u1", "p-live", now, now.Add(time.Hour))

	// A consumed record is unexpired but done; the sweep reclaims it too.
	_ = h.store.SaveReset(context.Background(), "u1", "p-used", now, now.Add(time.Hour))
	if ok, err := h.store.ConsumeReset(context.Background(), "p-used", "u1", now); err != nil || !ok {
		t.Fatalf("ConsumeReset: (%v, %v)", ok, err)
	}

	n, err := h.store.SweepExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
	if _, ok := h.store.refresh["r-live"]; !ok {
		t.Fatalf("live refresh record must survive")
	}
	if _, ok := h.store.reset["p-live"]; !ok {
		t.Fatalf("live unused reset record must survive")
	}
	if _, ok := h.store.reset["p-used"]; ok {
		t.Fatalf("used reset record must be swept")
	}
}
