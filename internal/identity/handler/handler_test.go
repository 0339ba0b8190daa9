package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	admininvitedomain "tenant-admin-plane/internal/admininvite/domain"
	"tenant-admin-plane/internal/audit"
	identitydomain "tenant-admin-plane/internal/identity/domain"
	"tenant-admin-plane/internal/identity/service"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	orgdomain "tenant-admin-plane/internal/organization/domain"
	"tenant-admin-plane/internal/security"
	"tenant-admin-plane/internal/server/middleware"
	userdomain "tenant-admin-plane/internal/user/domain"
	userrepo "tenant-admin-plane/internal/user/repository"
)

// fakeStore backs every persistence interface the identity handler touches,
// so binding writes are visible to the re-reads within one request.
type fakeStore struct {
	mu           sync.Mutex
	users        map[string]*userdomain.User // by email
	orgs         map[string]*orgdomain.Org
	memberships  []*membershipdomain.Membership
	adminInvites map[string]*admininvitedomain.AdminInvitation // by email
	vtokens      []*identitydomain.VerificationToken
	sentLinks    []string

	failCreateToken error
	failSendLink    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]*userdomain.User),
		orgs:         make(map[string]*orgdomain.Org),
		adminInvites: make(map[string]*admininvitedomain.AdminInvitation),
	}
}

func (s *fakeStore) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(ctx context.Context, u *userdomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func (s *fakeStore) List(ctx context.Context, limit int32, cursor string) ([]*userrepo.UserWithMemberships, error) {
	return nil, nil
}

func (s *fakeStore) SetEmailVerified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			now := time.Now().UTC()
			u.EmailVerified = &now
		}
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error { return nil }

func (s *fakeStore) LookupInvitations(ctx context.Context, email string) ([]*membershipdomain.Membership, *admininvitedomain.AdminInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*membershipdomain.Membership
	for _, m := range s.memberships {
		if m.UserID == "" && m.InvitedEmail == email {
			cp := *m
			pending = append(pending, &cp)
		}
	}
	if inv, ok := s.adminInvites[email]; ok {
		cp := *inv
		return pending, &cp, nil
	}
	return pending, nil, nil
}

func (s *fakeStore) PromoteToSuperadmin(ctx context.Context, userID, invitationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			u.Role = userdomain.GlobalRoleSuperadmin
		}
	}
	for email, inv := range s.adminInvites {
		if inv.ID == invitationID {
			delete(s.adminInvites, email)
		}
	}
	return nil
}

func (s *fakeStore) BindMemberships(ctx context.Context, userID string, membershipIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range membershipIDs {
		for _, m := range s.memberships {
			if m.ID == id && m.UserID == "" {
				m.UserID = userID
				m.InvitedEmail = ""
				m.InvitedName = ""
			}
		}
	}
	return nil
}

func (s *fakeStore) ListBoundByUser(ctx context.Context, userID string) ([]*membershipdomain.WithOrg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*membershipdomain.WithOrg
	for _, m := range s.memberships {
		if m.UserID != userID {
			continue
		}
		wm := &membershipdomain.WithOrg{Membership: *m}
		if org, ok := s.orgs[m.OrgID]; ok {
			wm.Organization = *org
		}
		out = append(out, wm)
	}
	return out, nil
}

func (s *fakeStore) CreateVerificationToken(ctx context.Context, t *identitydomain.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateToken != nil {
		return s.failCreateToken
	}
	cp := *t
	s.vtokens = append(s.vtokens, &cp)
	return nil
}

func (s *fakeStore) ConsumeVerificationToken(ctx context.Context, identifier, tokenHash string) (*identitydomain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, vt := range s.vtokens {
		if vt.Identifier == identifier && vt.TokenHash == tokenHash {
			s.vtokens = append(s.vtokens[:i], s.vtokens[i+1:]...)
			cp := *vt
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SendSignInLink(ctx context.Context, email, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSendLink != nil {
		return s.failSendLink
	}
	s.sentLinks = append(s.sentLinks, link)
	return nil
}

func (s *fakeStore) addUser(email string, role userdomain.GlobalRole, verified bool) *userdomain.User {
	now := time.Now().UTC()
	u := &userdomain.User{ID: uuid.New().String(), Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	if verified {
		u.EmailVerified = &now
	}
	s.users[email] = u
	return u
}

func (s *fakeStore) addOrg(id, name string) {
	s.orgs[id] = &orgdomain.Org{ID: id, Name: name}
}

func (s *fakeStore) addPendingMembership(orgID, email string, role membershipdomain.Role) *membershipdomain.Membership {
	m := &membershipdomain.Membership{
		ID: uuid.New().String(), OrgID: orgID,
		InvitedEmail: email, Role: role, CreatedAt: time.Now().UTC(),
	}
	s.memberships = append(s.memberships, m)
	return m
}

func (s *fakeStore) addBoundMembership(orgID, userID string, role membershipdomain.Role) *membershipdomain.Membership {
	m := &membershipdomain.Membership{
		ID: uuid.New().String(), OrgID: orgID,
		UserID: userID, Role: role, CreatedAt: time.Now().UTC(),
	}
	s.memberships = append(s.memberships, m)
	return m
}

const testBaseURL = "http://app.test"

func newTestHandler(t *testing.T) (*fakeStore, *security.TokenProvider, http.Handler) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	store := newFakeStore()
	gate := service.NewGate(store, nil)
	reconciler := service.NewReconciler(store, store, store, store, nil)
	h := New(Config{
		BaseURL:       testBaseURL,
		EmailTokenTTL: time.Hour,
	}, gate, reconciler, store, store, tokens, store, audit.NewLogger(nil, nil, nil, nil), nil)
	r := chi.NewRouter()
	h.Routes(r)
	return store, tokens, r
}

func sessionToken(t *testing.T, tokens *security.TokenProvider, u *userdomain.User) string {
	t.Helper()
	token, _, err := tokens.IssueSession(security.SessionIdentity{
		UserID: u.ID, Email: u.Email, Role: string(u.Role),
	})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return token
}

func clearedSessionCookie(res *http.Response) bool {
	for _, c := range res.Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value == "" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestSession_ReturnsReconciledSession(t *testing.T) {
	store, tokens, r := newTestHandler(t)
	u := store.addUser("a@x.com", userdomain.GlobalRoleMember, true)
	store.addOrg("org-1", "Acme")
	store.addBoundMembership("org-1", u.ID, membershipdomain.RoleOwner)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tokens, u))
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	var sess identitydomain.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if sess.User.Email != "a@x.com" || sess.User.Role != userdomain.GlobalRoleMember {
		t.Errorf("session user = %+v", sess.User)
	}
	if sess.Membership == nil || sess.Membership.OrgID != "org-1" || sess.Membership.Organization.Name != "Acme" {
		t.Errorf("session membership = %+v", sess.Membership)
	}
}

func TestSession_BindsPendingInvitationOnRead(t *testing.T) {
	store, tokens, r := newTestHandler(t)
	u := store.addUser("a@x.com", userdomain.GlobalRoleMember, true)
	store.addOrg("org-1", "Acme")
	pending := store.addPendingMembership("org-1", "a@x.com", membershipdomain.RoleMember)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tokens, u))
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	if pending.UserID != u.ID || pending.InvitedEmail != "" {
		t.Errorf("invitation not bound: %+v", pending)
	}
}

func TestSession_UnknownUserClearsCookie(t *testing.T) {
	_, tokens, r := newTestHandler(t)
	ghost := &userdomain.User{ID: "gone", Email: "gone@x.com", Role: userdomain.GlobalRoleMember}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tokens, ghost))
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if !clearedSessionCookie(rr.Result()) {
		t.Error("expected session cookie to be cleared")
	}
}

func TestSession_InconsistentStateForbidden(t *testing.T) {
	store, tokens, r := newTestHandler(t)
	u := store.addUser("a@x.com", userdomain.GlobalRoleMember, true)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tokens, u))
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body: %s", rr.Code, rr.Body.String())
	}
	if !clearedSessionCookie(rr.Result()) {
		t.Error("expected session cookie to be cleared")
	}
}

func TestSession_RequiresToken(t *testing.T) {
	_, _, r := newTestHandler(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/auth/session", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func postEmailStart(r http.Handler, email string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"email": email})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rr, req)
	return rr
}

func TestEmailStart_UninvitedLooksIdentical(t *testing.T) {
	store, _, r := newTestHandler(t)

	rr := postEmailStart(r, "nobody@x.com")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rr.Code, rr.Body.String())
	}
	if len(store.sentLinks) != 0 {
		t.Errorf("sent %d links, want 0", len(store.sentLinks))
	}
	if len(store.vtokens) != 0 {
		t.Errorf("stored %d tokens, want 0", len(store.vtokens))
	}
}

func TestEmailStart_InvitedReceivesLink(t *testing.T) {
	store, _, r := newTestHandler(t)
	store.addOrg("org-1", "Acme")
	store.addPendingMembership("org-1", "invited@x.com", membershipdomain.RoleMember)

	rr := postEmailStart(r, "Invited@X.com ")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rr.Code, rr.Body.String())
	}
	if len(store.sentLinks) != 1 {
		t.Fatalf("sent %d links, want 1", len(store.sentLinks))
	}
	if len(store.vtokens) != 1 {
		t.Fatalf("stored %d tokens, want 1", len(store.vtokens))
	}
	link := store.sentLinks[0]
	if !strings.HasPrefix(link, testBaseURL+"/auth/email/callback?") {
		t.Errorf("link = %q", link)
	}
	// The raw token travels in the link; only its digest is stored.
	if strings.Contains(link, store.vtokens[0].TokenHash) {
		t.Error("link contains the stored token digest")
	}
}

func TestEmailStart_DeliveryFailureLooksIdentical(t *testing.T) {
	_, _, uninvitedRouter := newTestHandler(t)
	uninvitedRR := postEmailStart(uninvitedRouter, "nobody@x.com")

	cases := []struct {
		name  string
		setup func(s *fakeStore)
	}{
		{"mailer failure", func(s *fakeStore) { s.failSendLink = errors.New("smtp down") }},
		{"token store failure", func(s *fakeStore) { s.failCreateToken = errors.New("db down") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _, r := newTestHandler(t)
			store.addOrg("org-1", "Acme")
			store.addPendingMembership("org-1", "invited@x.com", membershipdomain.RoleMember)
			tc.setup(store)

			rr := postEmailStart(r, "invited@x.com")
			if rr.Code != uninvitedRR.Code {
				t.Errorf("status = %d, uninvited = %d; responses must not differ", rr.Code, uninvitedRR.Code)
			}
			if rr.Body.String() != uninvitedRR.Body.String() {
				t.Errorf("body = %q, uninvited = %q; responses must not differ", rr.Body.String(), uninvitedRR.Body.String())
			}
		})
	}
}

func TestEmailCallback_CompletesSignIn(t *testing.T) {
	store, _, r := newTestHandler(t)
	store.addOrg("org-1", "Acme")
	store.addPendingMembership("org-1", "invited@x.com", membershipdomain.RoleMember)

	if rr := postEmailStart(r, "invited@x.com"); rr.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", rr.Code)
	}
	link := strings.TrimPrefix(store.sentLinks[0], testBaseURL)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", link, nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("callback status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != testBaseURL+"/" {
		t.Errorf("redirect = %q, want app root", loc)
	}

	var sessionCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session cookie issued")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	u := store.users["invited@x.com"]
	if u == nil {
		t.Fatal("user record not created")
	}
	if u.EmailVerified == nil {
		t.Error("email not marked verified")
	}
	if store.memberships[0].UserID != u.ID {
		t.Error("invitation not bound to the new user")
	}
	if len(store.vtokens) != 0 {
		t.Error("verification token not consumed")
	}
}

func TestEmailCallback_TokenIsSingleUse(t *testing.T) {
	store, _, r := newTestHandler(t)
	store.addOrg("org-1", "Acme")
	store.addPendingMembership("org-1", "invited@x.com", membershipdomain.RoleMember)
	postEmailStart(r, "invited@x.com")
	link := strings.TrimPrefix(store.sentLinks[0], testBaseURL)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", link, nil))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", link, nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("replay status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "error=invalid_link") {
		t.Errorf("replay redirect = %q, want invalid_link error", loc)
	}
}

func TestEmailCallback_ExpiredToken(t *testing.T) {
	store, _, r := newTestHandler(t)
	store.vtokens = append(store.vtokens, &identitydomain.VerificationToken{
		Identifier: "a@x.com",
		TokenHash:  security.DigestToken("stale"),
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/auth/email/callback?identifier=a%40x.com&token=stale", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "error=invalid_link") {
		t.Errorf("redirect = %q, want invalid_link error", loc)
	}
}

func TestSignOut_ClearsCookie(t *testing.T) {
	_, _, r := newTestHandler(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/auth/signout", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if !clearedSessionCookie(rr.Result()) {
		t.Error("expected session cookie to be cleared")
	}
}

func TestGoogleLogin_RequiresConfiguration(t *testing.T) {
	_, _, r := newTestHandler(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/auth/google", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "error=google_not_configured") {
		t.Errorf("redirect = %q, want google_not_configured error", loc)
	}
}

func TestGoogleCallback_RejectsStateMismatch(t *testing.T) {
	_, _, r := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/google/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "expected"})
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "error=invalid_state") {
		t.Errorf("redirect = %q, want invalid_state error", loc)
	}
}
