package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/config"
	"github.com/vitalpages/server/internal/domain/blog"
	"github.com/vitalpages/server/internal/domain/contacts"
	"github.com/vitalpages/server/internal/domain/content"
	"github.com/vitalpages/server/internal/domain/navigation"
	"github.com/vitalpages/server/internal/domain/users"
	"github.com/vitalpages/server/internal/email"
)

// fakePageRepo is an in-memory content.Repository.
type fakePageRepo struct {
	mu        sync.Mutex
	pages     map[string]content.Page
	revisions map[string]content.Revision
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{pages: map[string]content.Page{}, revisions: map[string]content.Revision{}}
}

func (f *fakePageRepo) CreatePage(_ context.Context, page content.Page) (content.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page.ID] = page
	return page, nil
}

func (f *fakePageRepo) GetPage(_ context.Context, id string) (content.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[id]
	if !ok {
		return content.Page{}, content.ErrPageNotFound
	}
	return page, nil
}

func (f *fakePageRepo) GetPageBySlug(_ context.Context, slug string) (content.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, page := range f.pages {
		if page.Slug == slug {
			return page, nil
		}
	}
	return content.Page{}, content.ErrPageNotFound
}

func (f *fakePageRepo) ListPages(_ context.Context, filters content.ListFilters) ([]content.Page, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []content.Page
	for _, page := range f.pages {
		if filters.Status == "" || page.Status == filters.Status {
			out = append(out, page)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakePageRepo) UpdatePage(_ context.Context, page content.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[page.ID]; !ok {
		return content.ErrPageNotFound
	}
	f.pages[page.ID] = page
	return nil
}

func (f *fakePageRepo) DeletePage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pages, id)
	return nil
}

func (f *fakePageRepo) CreateRevision(_ context.Context, revision content.Revision) (content.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revisions[revision.ID] = revision
	return revision, nil
}

func (f *fakePageRepo) GetRevision(_ context.Context, id string) (content.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	revision, ok := f.revisions[id]
	if !ok {
		return content.Revision{}, content.ErrRevisionNotFound
	}
	return revision, nil
}

func (f *fakePageRepo) ListRevisions(_ context.Context, pageID string, limit int) ([]content.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []content.Revision
	for _, revision := range f.revisions {
		if revision.PageID == pageID {
			out = append(out, revision)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, map[string]any) {}

// recordingTracker captures analytics events for assertions.
type recordingTracker struct {
	mu     sync.Mutex
	names  []string
	params []map[string]any
}

func (r *recordingTracker) Track(_ context.Context, _ string, name string, params map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.params = append(r.params, params)
}

func (r *recordingTracker) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func testJWTManager(t *testing.T) *auth.JWTManager {
	t.Helper()
	manager, err := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour, 5*time.Minute, "vitalpages")
	require.NoError(t, err)
	return manager
}

func adminRequest(t *testing.T, manager *auth.JWTManager, method, target, body string) *http.Request {
	t.Helper()
	token, err := manager.GenerateSession("admin-1", "admin")
	require.NoError(t, err)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func newPagesTestMux(t *testing.T, tracker Tracker) (*http.ServeMux, *auth.JWTManager) {
	t.Helper()
	manager := testJWTManager(t)
	service := content.NewService(newFakePageRepo(), noopPublisher{}, zerolog.Nop())
	handler := NewPagesHandler(service, tracker, audit.NewLogger(zerolog.Nop()), "test")

	authed := middleware.SessionAuth(manager, "test")
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/admin/pages", authed(http.HandlerFunc(handler.Create)))
	mux.Handle("POST /api/v1/admin/pages/{id}/publish", authed(http.HandlerFunc(handler.Publish)))
	mux.Handle("GET /api/v1/admin/pages/{id}/revisions/diff", authed(http.HandlerFunc(handler.DiffRevisions)))
	mux.HandleFunc("GET /api/v1/pages/{slug}", handler.GetPublished)
	return mux, manager
}

func TestPagesHandler_PublishFlow(t *testing.T) {
	mux, manager := newPagesTestMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodPost, "/api/v1/admin/pages",
		`{"slug":"services","title":"Our Services","body":"<p>Care</p>"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var page content.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, content.StatusDraft, page.Status)

	// drafts are invisible to the public surface
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/services", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodPost, "/api/v1/admin/pages/"+page.ID+"/publish", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/services", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPagesHandler_DuplicateSlugConflicts(t *testing.T) {
	mux, manager := newPagesTestMux(t, nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodPost, "/api/v1/admin/pages",
			`{"slug":"about","title":"About","body":"<p>hi</p>"}`))
		if i == 0 {
			require.Equal(t, http.StatusCreated, rec.Code)
		} else {
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		}
	}
}

func TestPagesHandler_DiffRequiresBothRevisions(t *testing.T) {
	mux, manager := newPagesTestMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodGet, "/api/v1/admin/pages/p1/revisions/diff?from=r1", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPagesHandler_RejectsAnonymousWrites(t *testing.T) {
	mux, _ := newPagesTestMux(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/pages", strings.NewReader(`{"slug":"x","title":"X","body":""}`))
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// fakeContactRepo is an in-memory contacts.Repository.
type fakeContactRepo struct {
	mu          sync.Mutex
	submissions map[string]contacts.Submission
}

func (f *fakeContactRepo) CreateSubmission(_ context.Context, s contacts.Submission) (contacts.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions[s.ID] = s
	return s, nil
}

func (f *fakeContactRepo) GetSubmission(_ context.Context, id string) (contacts.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[id]
	if !ok {
		return contacts.Submission{}, contacts.ErrSubmissionNotFound
	}
	return s, nil
}

func (f *fakeContactRepo) MarkRead(_ context.Context, id string, read bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[id]
	if !ok {
		return contacts.ErrSubmissionNotFound
	}
	s.Read = read
	f.submissions[id] = s
	return nil
}

func (f *fakeContactRepo) DeleteSubmission(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.submissions, id)
	return nil
}

func (f *fakeContactRepo) ListSubmissions(_ context.Context, filters contacts.ListFilters) ([]contacts.Submission, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contacts.Submission
	for _, s := range f.submissions {
		if filters.Unread != nil && s.Read == *filters.Unread {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

type fakeCaptcha struct{ fail bool }

func (f fakeCaptcha) Verify(context.Context, string, string) error {
	if f.fail {
		return contacts.ErrCaptchaFailed
	}
	return nil
}

func newContactsHandler(t *testing.T, captcha contacts.CaptchaVerifier, tracker Tracker) *ContactsHandler {
	t.Helper()
	repo := &fakeContactRepo{submissions: map[string]contacts.Submission{}}
	service := contacts.NewService(repo, captcha, nil, noopPublisher{}, "", zerolog.Nop())
	return NewContactsHandler(service, tracker, audit.NewLogger(zerolog.Nop()), "test")
}

func TestContactsHandler_Submit(t *testing.T) {
	handler := newContactsHandler(t, fakeCaptcha{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"name":"Pat","email":"pat@example.com","message":"Hello","captcha_token":"tok"}`))
	handler.Submit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, "received", resp["status"])
}

func TestContactsHandler_SubmitCaptchaFailure(t *testing.T) {
	handler := newContactsHandler(t, fakeCaptcha{fail: true}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"name":"Pat","email":"pat@example.com","message":"Hello","captcha_token":"bad"}`))
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestContactsHandler_SubmitInvalidFields(t *testing.T) {
	handler := newContactsHandler(t, fakeCaptcha{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"name":"","email":"not-an-email","message":"","captcha_token":"tok"}`))
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

// fakeNavRepo is an in-memory navigation.Repository.
type fakeNavRepo struct {
	mu    sync.Mutex
	items map[string]navigation.Item
}

func (f *fakeNavRepo) CreateItem(_ context.Context, item navigation.Item) (navigation.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeNavRepo) GetItem(_ context.Context, id string) (navigation.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return navigation.Item{}, navigation.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeNavRepo) UpdateItem(_ context.Context, item navigation.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return navigation.ErrItemNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeNavRepo) DeleteItem(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeNavRepo) ListItems(_ context.Context) ([]navigation.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []navigation.Item
	for _, item := range f.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func TestNavigationHandler_PublicTreeHidesInvisible(t *testing.T) {
	manager := testJWTManager(t)
	service := navigation.NewService(&fakeNavRepo{items: map[string]navigation.Item{}}, zerolog.Nop())
	handler := NewNavigationHandler(service, audit.NewLogger(zerolog.Nop()), "test")

	authed := middleware.SessionAuth(manager, "test")
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/admin/navigation", authed(http.HandlerFunc(handler.Create)))
	mux.HandleFunc("GET /api/v1/navigation", handler.PublicTree)

	for _, body := range []string{
		`{"label":"Home","url":"/","position":0,"visible":true}`,
		`{"label":"Staff Only","url":"/internal","position":1,"visible":false}`,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodPost, "/api/v1/admin/navigation", body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/navigation", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Navigation []navigation.Tree `json:"navigation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Navigation, 1)
	assert.Equal(t, "Home", resp.Navigation[0].Label)
}

func TestPagesHandler_GetPublishedTracksPageView(t *testing.T) {
	tracker := &recordingTracker{}
	mux, manager := newPagesTestMux(t, tracker)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodPost, "/api/v1/admin/pages",
		`{"slug":"services","title":"Our Services","body":"<p>Care</p>"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var page content.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))

	// A draft fetch 404s and must not count as a view.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/services", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, tracker.events())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, adminRequest(t, manager, http.MethodPost, "/api/v1/admin/pages/"+page.ID+"/publish", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []string{"page_view"}, tracker.events())
	assert.Equal(t, "/services", tracker.params[0]["page_path"])
	assert.Equal(t, "Our Services", tracker.params[0]["page_title"])
}

// fakePostRepo is an in-memory blog.Repository.
type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]blog.Post
}

func (f *fakePostRepo) CreatePost(_ context.Context, post blog.Post) (blog.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepo) GetPost(_ context.Context, id string) (blog.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return blog.Post{}, blog.ErrPostNotFound
	}
	return post, nil
}

func (f *fakePostRepo) GetPostBySlug(_ context.Context, slug string) (blog.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, post := range f.posts {
		if post.Slug == slug {
			return post, nil
		}
	}
	return blog.Post{}, blog.ErrPostNotFound
}

func (f *fakePostRepo) UpdatePost(_ context.Context, post blog.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID]; !ok {
		return blog.ErrPostNotFound
	}
	f.posts[post.ID] = post
	return nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) ListPosts(_ context.Context, filters blog.ListFilters) ([]blog.Post, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []blog.Post
	for _, post := range f.posts {
		if filters.Status == "" || post.Status == filters.Status {
			out = append(out, post)
		}
	}
	return out, len(out), nil
}

func TestPostsHandler_GetPublishedTracksPageView(t *testing.T) {
	repo := &fakePostRepo{posts: map[string]blog.Post{
		"post-1": {ID: "post-1", Slug: "flu-season", Title: "Flu Season Tips", Status: blog.StatusPublished},
	}}
	tracker := &recordingTracker{}
	handler := NewPostsHandler(blog.NewService(repo, noopPublisher{}, zerolog.Nop()), tracker, audit.NewLogger(zerolog.Nop()), "test")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/posts/{slug}", handler.GetPublished)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/posts/flu-season", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []string{"page_view"}, tracker.events())
	assert.Equal(t, "/blog/flu-season", tracker.params[0]["page_path"])
}

func TestContactsHandler_SubmitTracksEvent(t *testing.T) {
	tracker := &recordingTracker{}
	handler := newContactsHandler(t, fakeCaptcha{}, tracker)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"name":"Pat","email":"pat@example.com","message":"Hello","captcha_token":"tok"}`))
	handler.Submit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"contact_submit"}, tracker.events())
}

// fakeUserStore is an in-memory users.Repository.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]users.User
}

func (f *fakeUserStore) CreateUser(_ context.Context, user users.User) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return users.User{}, users.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrUserNotFound
}

func (f *fakeUserStore) UpdateUser(_ context.Context, user users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return users.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) ListUsers(_ context.Context, _ users.ListFilters) ([]users.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []users.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeUserStore) CreateInvitation(_ context.Context, invitation users.Invitation) (users.Invitation, error) {
	return invitation, nil
}

func (f *fakeUserStore) GetInvitationByTokenHash(_ context.Context, _ string) (users.Invitation, error) {
	return users.Invitation{}, users.ErrInvalidToken
}

func (f *fakeUserStore) MarkInvitationAccepted(_ context.Context, _ string) error {
	return nil
}

func TestAdminAuthHandler_SessionCookieHonorsConfiguredExpiry(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &fakeUserStore{users: map[string]users.User{
		"admin-1": {
			ID:           "admin-1",
			Name:         "Admin",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         "admin",
			Active:       true,
		},
	}}

	emailSvc, err := email.NewService(config.EmailConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	userSvc := users.NewService(store, emailSvc, auth.NewTwoFactor("VitalPages Test"),
		audit.NewLogger(zerolog.Nop()), nil, "https://admin.example.com", zerolog.Nop())

	sessionExpiry := 2 * time.Hour
	handler := NewAdminAuthHandler(userSvc, testJWTManager(t), audit.NewLogger(zerolog.Nop()), "test", false, sessionExpiry)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login",
		strings.NewReader(`{"email":"admin@example.com","password":"correct horse battery"}`))
	handler.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie not set")

	wantExpiry := time.Now().Add(sessionExpiry)
	assert.WithinDuration(t, wantExpiry, cookie.Expires, time.Minute)
}
