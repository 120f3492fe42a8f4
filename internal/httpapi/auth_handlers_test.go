package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealdesk/dealdesk/internal/auth"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/httpapi"
	"github.com/dealdesk/dealdesk/internal/store"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

// memUsers mirrors the mongo-backed store's write path: it hashes the
// password, fills defaults and reports duplicates as conflicts.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*auth.User{}}
}

func (s *memUsers) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return nil, goerrors.New("email already registered", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict)
	}

	hash, err := auth.HashPassword(user.Password)
	if err != nil {
		return nil, err
	}

	stored := *user
	stored.ID = primitive.NewObjectID()
	stored.Password = hash
	if stored.Role == "" {
		stored.Role = auth.RoleUser
	}
	stored.CreatedAt = time.Now().UTC()

	s.byEmail[stored.Email] = &stored
	return &stored, nil
}

func (s *memUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byEmail[email]
	if !ok {
		return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	copied := *user
	return &copied, nil
}

func (s *memUsers) GetByID(ctx context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.byEmail {
		if user.ID.Hex() == id {
			copied := *user
			copied.Password = ""
			return &copied, nil
		}
	}
	return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

// seed inserts a user directly, bypassing registration, so tests can set
// up admin accounts.
func (s *memUsers) seed(t *testing.T, email, password string, role auth.UserRole) {
	t.Helper()

	hash, err := auth.HashPassword(password)
	assert.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[email] = &auth.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Password:  hash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}

type memDenylist struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func newMemDenylist() *memDenylist {
	return &memDenylist{tokens: map[string]bool{}}
}

func (d *memDenylist) Add(ctx context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[token] = true
	return nil
}

func (d *memDenylist) Contains(ctx context.Context, token string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tokens[token], nil
}

// fakeFiles records puts and deletes instead of talking to object storage.
type fakeFiles struct {
	mu      sync.Mutex
	stored  map[string][]byte
	deleted []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{stored: map[string][]byte{}}
}

func (f *fakeFiles) Put(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[key] = data
	return "https://files.test/" + key, nil
}

func (f *fakeFiles) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeDocs is an in-memory DocumentStore for one resource collection.
type fakeDocs struct {
	mu   sync.Mutex
	kind string
	docs map[string]*store.Document
}

func newFakeDocs(kind string) *fakeDocs {
	return &fakeDocs{kind: kind, docs: map[string]*store.Document{}}
}

func (f *fakeDocs) notFound(id string) error {
	return goerrors.New(f.kind+" not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func (f *fakeDocs) List(ctx context.Context) ([]*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*store.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeDocs) GetByID(ctx context.Context, id string) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok {
		return nil, f.notFound(id)
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocs) Create(ctx context.Context, doc *store.Document) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *doc
	stored.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	f.docs[stored.ID.Hex()] = &stored
	copied := stored
	return &copied, nil
}

func (f *fakeDocs) Update(ctx context.Context, id string, update store.DocumentUpdate) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok {
		return nil, f.notFound(id)
	}
	if update.Title != nil {
		doc.Title = *update.Title
	}
	if update.Description != nil {
		doc.Description = *update.Description
	}
	if update.File != nil {
		doc.File = update.File
	}
	doc.UpdatedAt = time.Now().UTC()

	copied := *doc
	return &copied, nil
}

func (f *fakeDocs) Delete(ctx context.Context, id string) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok {
		return nil, f.notFound(id)
	}
	delete(f.docs, id)
	return doc, nil
}

func (f *fakeDocs) Kind() string {
	return f.kind
}

// testEnv bundles the server with its fakes so tests can reach behind the
// HTTP surface.
type testEnv struct {
	server   *httpapi.Server
	users    *memUsers
	denylist *memDenylist
	files    *fakeFiles
	offers   *fakeDocs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.Server{
			CORSOrigins:  []string{"http://localhost:3000"},
			RateLimit:    1000,
			RateInterval: time.Minute,
		},
		Auth: config.Auth{
			AccessSecret:  testAccessSecret,
			RefreshSecret: testRefreshSecret,
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			CookieName:    auth.DefaultCookieName,
		},
	}

	users := newMemUsers()
	denylist := newMemDenylist()
	files := newFakeFiles()
	offers := newFakeDocs("offer")

	codec := auth.NewCodec(nil)
	svc := auth.NewService(users, denylist, codec, cfg.Auth, nil)

	server := httpapi.New(httpapi.Deps{
		Config:      cfg,
		Auth:        svc,
		Codec:       codec,
		Denylist:    denylist,
		Files:       files,
		Offers:      offers,
		Invitations: newFakeDocs("invitation"),
		Protocols:   newFakeDocs("protocol"),
	})

	return &testEnv{
		server:   server,
		users:    users,
		denylist: denylist,
		files:    files,
		offers:   offers,
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	body := map[string]any{}
	assert.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.DefaultCookieName {
			return c
		}
	}
	return nil
}

// login runs the login flow and returns the refresh cookie for follow-up
// requests.
func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	resp, err := e.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/login",
		`{"email":"`+email+`","password":"`+password+`"}`))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cookie := refreshCookie(resp)
	assert.NotNil(t, cookie)
	return cookie
}

func TestAuthRegister(t *testing.T) {
	t.Run("returns an access token and sets the refresh cookie", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"jane@example.com","password":"hunter22"}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		access, _ := body["accessToken"].(string)
		assert.NotEmpty(t, access)

		claims, err := auth.NewCodec(nil).Verify(access, testAccessSecret)
		assert.NoError(t, err)
		assert.Equal(t, "jane@example.com", claims.Email)
		assert.Equal(t, auth.RoleUser, claims.Role)

		cookie := refreshCookie(resp)
		if assert.NotNil(t, cookie) {
			assert.True(t, cookie.HttpOnly)
			assert.True(t, cookie.Secure)
			assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
			assert.NotEqual(t, access, cookie.Value)

			_, err := auth.NewCodec(nil).Verify(cookie.Value, testRefreshSecret)
			assert.NoError(t, err)
		}
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "hunter22", auth.RoleUser)

		resp, err := env.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"jane@example.com","password":"hunter22"}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("rejects an invalid payload", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"not-an-email","password":"short"}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthLogin(t *testing.T) {
	t.Run("rejects an unknown email", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"nobody@example.com","password":"whatever"}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "correct-horse", auth.RoleUser)

		resp, err := env.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"jane@example.com","password":"wrong-horse"}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("issues a fresh pair on success", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "correct-horse", auth.RoleUser)

		cookie := env.login(t, "jane@example.com", "correct-horse")
		claims, err := auth.NewCodec(nil).Verify(cookie.Value, testRefreshSecret)
		assert.NoError(t, err)
		assert.Equal(t, "jane@example.com", claims.Email)
	})
}

func TestAuthLogout(t *testing.T) {
	t.Run("requires the refresh cookie", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.server.App().Test(jsonRequest(http.MethodPost, "/api/auth/logout", ""))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Missing token!", body["message"])
	})

	t.Run("denylists the token and clears the cookie", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "correct-horse", auth.RoleUser)
		cookie := env.login(t, "jane@example.com", "correct-horse")

		req := jsonRequest(http.MethodPost, "/api/auth/logout", "")
		req.AddCookie(cookie)

		resp, err := env.server.App().Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Logged out successfully!", body["message"])

		denied, err := env.denylist.Contains(context.Background(), cookie.Value)
		assert.NoError(t, err)
		assert.True(t, denied)

		cleared := refreshCookie(resp)
		if assert.NotNil(t, cleared) {
			assert.Empty(t, cleared.Value)
			assert.True(t, cleared.Expires.Before(time.Now()))
		}
	})

	t.Run("a logged-out cookie no longer opens the session gate", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "correct-horse", auth.RoleUser)
		cookie := env.login(t, "jane@example.com", "correct-horse")

		logout := jsonRequest(http.MethodPost, "/api/auth/logout", "")
		logout.AddCookie(cookie)
		resp, err := env.server.App().Test(logout)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		profile := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		profile.AddCookie(cookie)
		resp, err = env.server.App().Test(profile)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Invalid token!", body["message"])
	})
}

func TestAuthProfile(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.server.App().Test(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("returns the user without the password", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "correct-horse", auth.RoleUser)
		cookie := env.login(t, "jane@example.com", "correct-horse")

		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		req.AddCookie(cookie)

		resp, err := env.server.App().Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "jane@example.com", body["email"])
		assert.Equal(t, auth.RoleUser, body["role"])
		assert.NotContains(t, body, "password")
	})
}

func TestAuthRefresh(t *testing.T) {
	t.Run("mints an access token for the cookie identity", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.seed(t, "jane@example.com", "correct-horse", auth.RoleAdmin)
		cookie := env.login(t, "jane@example.com", "correct-horse")

		req := httptest.NewRequest(http.MethodGet, "/api/auth/refresh", nil)
		req.AddCookie(cookie)

		resp, err := env.server.App().Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		access, _ := body["accessToken"].(string)
		assert.NotEmpty(t, access)

		claims, err := auth.NewCodec(nil).Verify(access, testAccessSecret)
		assert.NoError(t, err)
		assert.Equal(t, "jane@example.com", claims.Email)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
	})

	t.Run("rejects a request without the cookie", func(t *testing.T) {
		env := newTestEnv(t)

		resp, err := env.server.App().Test(httptest.NewRequest(http.MethodGet, "/api/auth/refresh", nil))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
