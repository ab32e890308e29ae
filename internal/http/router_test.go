package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byiringiro215/lms/internal/analytics"
	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/catalog"
	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/ledger"
	"github.com/Byiringiro215/lms/internal/pagination"
	"github.com/Byiringiro215/lms/internal/tasks"
	"github.com/Byiringiro215/lms/internal/users"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	gin.SetMode(gin.TestMode)
}

// --- fakes ---

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCatalog struct {
	created catalog.CreateInput
	err     error
}

func (f *fakeCatalog) List(_ context.Context, q catalog.ListQuery) (pagination.Page[entities.Book], error) {
	p := pagination.Normalize(q.Page, q.Limit, pagination.DefaultOpts)
	return pagination.NewPage([]entities.Book{{ID: "b1", Title: "Dune"}}, 1, p), f.err
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*entities.Book, error) {
	if id != "b1" {
		return nil, apperr.NotFound("Book not found")
	}
	return &entities.Book{ID: "b1", Title: "Dune"}, nil
}

func (f *fakeCatalog) Create(_ context.Context, requester entities.Identity, in catalog.CreateInput) (*entities.Book, error) {
	if !requester.Role.IsPrivileged() {
		return nil, apperr.Authorization("Only librarians can manage the catalog")
	}
	f.created = in
	return &entities.Book{ID: "b2", Title: in.Title, TotalCopies: in.TotalCopies, AvailableCopies: in.TotalCopies}, f.err
}

func (f *fakeCatalog) Update(_ context.Context, _ entities.Identity, id string, _ catalog.UpdateInput) (*entities.Book, error) {
	return &entities.Book{ID: id}, f.err
}

func (f *fakeCatalog) Delete(context.Context, entities.Identity, string) error { return f.err }

type fakeLedger struct {
	req ledger.BorrowRequest
	err error
}

func (f *fakeLedger) Borrow(_ context.Context, requester entities.Identity, req ledger.BorrowRequest) (*entities.Borrowing, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.req = req
	return &entities.Borrowing{ID: "br1", UserID: req.UserID, BookID: req.BookID, DueDate: req.DueDate, Status: entities.BorrowingStatusActive}, nil
}

func (f *fakeLedger) Return(context.Context, string, entities.Identity) (bool, error) {
	return f.err == nil, f.err
}

func (f *fakeLedger) Get(_ context.Context, id string, _ entities.Identity) (*entities.Borrowing, error) {
	return &entities.Borrowing{ID: id}, f.err
}

func (f *fakeLedger) ListByUser(_ context.Context, _ string, _ entities.Identity, page, limit int) (pagination.Page[entities.Borrowing], error) {
	return pagination.NewPage[entities.Borrowing](nil, 0, pagination.Normalize(page, limit, pagination.DefaultOpts)), f.err
}

type fakeQueue struct {
	enqueued []backlite.Task
	status   backlite.TaskStatus
}

func (f *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	f.enqueued = append(f.enqueued, task)
	return "task-1", nil
}

func (f *fakeQueue) Status(context.Context, string) (backlite.TaskStatus, error) {
	return f.status, nil
}

type fakeAuthenticator struct {
	issuer *auth.SessionIssuer
	err    error
}

func (f *fakeAuthenticator) Login(_ context.Context, _ string, token string, _ auth.ClientInfo) (*auth.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token == "" {
		return nil, apperr.Validation("No token provided")
	}
	user := &entities.User{ID: "u1", Email: "jane@example.com", Role: entities.RoleStudent}
	signed, exp, err := f.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	return &auth.LoginResult{User: user, Token: signed, ExpiresAt: exp}, nil
}

func (f *fakeAuthenticator) Logout(entities.Identity, auth.ClientInfo) {}

func (f *fakeAuthenticator) HasProvider(name string) bool { return name == auth.ProviderProfile }

// --- setup ---

type testEnv struct {
	router  *gin.Engine
	issuer  *auth.SessionIssuer
	catalog *fakeCatalog
	ledger  *fakeLedger
	queue   *fakeQueue
	authn   *fakeAuthenticator
}

func setupTestRouter(t *testing.T, mutate func(cfg *RouterConfig)) *testEnv {
	t.Helper()

	issuer, err := auth.NewSessionIssuer(config.Auth{JWTSecret: "router-test-secret", TokenExpiry: time.Hour})
	require.NoError(t, err)

	limiter := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: 2, WindowDuration: time.Minute, LockoutDuration: time.Minute})
	t.Cleanup(limiter.Stop)

	env := &testEnv{
		issuer:  issuer,
		catalog: &fakeCatalog{},
		ledger:  &fakeLedger{},
		queue:   &fakeQueue{status: backlite.TaskStatusPending},
		authn:   &fakeAuthenticator{issuer: issuer},
	}
	cfg := RouterConfig{
		Database:       fakePinger{},
		Catalog:        env.catalog,
		Ledger:         env.ledger,
		Analytics:      analytics.NewService(nil, nil),
		Auth:           env.authn,
		Sessions:       issuer,
		AuthMiddleware: auth.NewMiddleware(issuer),
		RateLimiter:    limiter,
		LoginURL:       "https://id.example.com/login",
		AppRedirectURL: "https://api.example.com/auth/callback",
		FrontendURL:    "https://app.example.com",
		Tasks:          env.queue,
		Version:        "test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env.router = NewRouter(cfg)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, role entities.Role, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, _, err := e.issuer.Issue(&entities.User{ID: "u1", Role: role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

// --- error mapping ---

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation("bad"), http.StatusBadRequest, "validation_error"},
		{apperr.Unauthenticated("who"), http.StatusUnauthorized, "unauthenticated"},
		{apperr.Authorization("no"), http.StatusForbidden, "forbidden"},
		{apperr.NotFound("gone"), http.StatusNotFound, "not_found"},
		{apperr.Conflict("dup"), http.StatusConflict, "conflict"},
		{apperr.Unavailable("none left"), http.StatusBadRequest, "unavailable"},
		{apperr.LimitExceeded("too many"), http.StatusBadRequest, "limit_exceeded"},
		{apperr.Policy("no"), http.StatusForbidden, "policy_violation"},
		{apperr.Configuration("unset"), http.StatusInternalServerError, "configuration_error"},
		{apperr.Service(errors.New("db down"), "try later"), http.StatusServiceUnavailable, "service_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondAppError(c, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRespondAppError_HidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondAppError(c, errors.New("pq: relation \"books\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "relation")
}

// --- health ---

func TestHealth(t *testing.T) {
	env := setupTestRouter(t, nil)
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database": "ok"`)

	env = setupTestRouter(t, func(cfg *RouterConfig) {
		cfg.Database = fakePinger{err: errors.New("connection refused")}
	})
	rr = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "unhealthy")
}

// --- books ---

func TestBooks_ListIsPublic(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/books?page=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp PageResponse[entities.Book]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, 1, resp.TotalPages)
	assert.False(t, resp.HasMore)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Dune", resp.Data[0].Title)
}

func TestBooks_ListRejectsBadQuery(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/books?category=poetry", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, map[string]any{"category": "category"}, decodeError(t, rr).Details)

	rr = env.do(t, http.MethodGet, "/books?page=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_error", decodeError(t, rr).Code)
}

func TestBooks_GetNotFound(t *testing.T) {
	env := setupTestRouter(t, nil)
	rr := env.do(t, http.MethodGet, "/books/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Code)
}

func TestBooks_Create(t *testing.T) {
	env := setupTestRouter(t, nil)
	body := map[string]any{
		"title":       "Dune",
		"author":      "Frank Herbert",
		"isbn":        "9780441013593",
		"category":    "novel",
		"totalCopies": 3,
	}

	rr := env.do(t, http.MethodPost, "/books", "", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/books", entities.RoleStudent, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, "/books", entities.RoleLibrarian, body)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "novel", env.catalog.created.Category)
	assert.Equal(t, 3, env.catalog.created.TotalCopies)
	assert.Contains(t, rr.Body.String(), `"availableCopies":3`)
}

func TestBooks_CreateValidation(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/books", entities.RoleLibrarian, map[string]any{
		"author":      "Frank Herbert",
		"isbn":        "9780441013593",
		"category":    "NOVEL",
		"totalCopies": 0,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	resp := decodeError(t, rr)
	assert.Equal(t, "validation_error", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "required", details["title"])
	assert.Equal(t, "required", details["totalCopies"])
}

func TestBooks_UpdateRejectsAvailableCopies(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPatch, "/books/b1", entities.RoleLibrarian, map[string]any{"availableCopies": 9})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPatch, "/books/b1", entities.RoleLibrarian, map[string]any{"totalCopies": 4})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBooks_DeleteConflict(t *testing.T) {
	env := setupTestRouter(t, nil)
	env.catalog.err = apperr.Conflict("Book has borrowing history")

	rr := env.do(t, http.MethodDelete, "/books/b1", entities.RoleLibrarian, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- borrowings ---

func TestBorrow(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/borrowings/borrow", "", map[string]any{"userId": "u1", "bookId": "b1", "dueDate": "2030-01-31"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/borrowings/borrow", entities.RoleStudent, map[string]any{"userId": "u1", "bookId": "b1", "dueDate": "2030-01-31"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, time.Date(2030, 1, 31, 23, 59, 59, 0, time.UTC), env.ledger.req.DueDate)

	rr = env.do(t, http.MethodPost, "/borrowings/borrow", entities.RoleStudent, map[string]any{"userId": "u1", "bookId": "b1", "dueDate": "2030-01-31T10:00:00Z"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, time.Date(2030, 1, 31, 10, 0, 0, 0, time.UTC), env.ledger.req.DueDate.UTC())
}

func TestBorrow_InvalidInput(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/borrowings/borrow", entities.RoleStudent, map[string]any{"userId": "u1", "dueDate": "2030-01-31"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, map[string]any{"bookId": "required"}, decodeError(t, rr).Details)

	rr = env.do(t, http.MethodPost, "/borrowings/borrow", entities.RoleStudent, map[string]any{"userId": "u1", "bookId": "b1", "dueDate": "next week"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_error", decodeError(t, rr).Code)
}

func TestBorrow_LedgerErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Unavailable("No copies available"), http.StatusBadRequest},
		{apperr.LimitExceeded("Borrow limit reached"), http.StatusBadRequest},
		{apperr.Authorization("You can only borrow books for yourself"), http.StatusForbidden},
		{apperr.NotFound("Book not found"), http.StatusNotFound},
		{apperr.Service(context.DeadlineExceeded, "Ledger is busy"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		env := setupTestRouter(t, nil)
		env.ledger.err = tt.err

		rr := env.do(t, http.MethodPost, "/borrowings/borrow", entities.RoleStudent, map[string]any{"userId": "u1", "bookId": "b1", "dueDate": "2030-01-31"})
		assert.Equal(t, tt.status, rr.Code, tt.err.Error())
	}
}

func TestReturn(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/borrowings/return/br1", entities.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"returned":true}`, rr.Body.String())

	env.ledger.err = apperr.Authorization("You can only return your own borrowings")
	rr = env.do(t, http.MethodPost, "/borrowings/return/br1", entities.RoleStudent, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListByUser(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/borrowings/user/u1?limit=500", entities.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp PageResponse[entities.Borrowing]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.Limit)
	assert.NotNil(t, resp.Data)
}

// --- analytics ---

func TestAnalytics_StudentForbidden(t *testing.T) {
	env := setupTestRouter(t, nil)

	for _, path := range []string{"/analytics/top-borrowed", "/analytics/overdue", "/analytics/trends", "/analytics/summary"} {
		rr := env.do(t, http.MethodGet, path+"?userRole=LIBRARIAN", entities.RoleStudent, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code, path)
		assert.Equal(t, "forbidden", decodeError(t, rr).Code, path)

		rr = env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

// --- admin ---

func TestAdminSweep(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/admin/sweep", entities.RoleStudent, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, env.queue.enqueued)

	rr = env.do(t, http.MethodPost, "/admin/sweep", entities.RoleLibrarian, nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"taskId":"task-1","status":"pending"}`, rr.Body.String())
	require.Len(t, env.queue.enqueued, 1)
	assert.Equal(t, tasks.SweepOverdueTask{RequestedBy: "u1"}, env.queue.enqueued[0])
}

func TestAdminSweep_QueueDisabled(t *testing.T) {
	env := setupTestRouter(t, func(cfg *RouterConfig) { cfg.Tasks = nil })

	rr := env.do(t, http.MethodPost, "/admin/sweep", entities.RoleAdmin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "service_error", decodeError(t, rr).Code)
}

func TestAdminTaskStatus(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/admin/tasks/task-1", entities.RoleLibrarian, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"taskId":"task-1","status":"pending"}`, rr.Body.String())

	env.queue.status = backlite.TaskStatusNotFound
	rr = env.do(t, http.MethodGet, "/admin/tasks/nope", entities.RoleLibrarian, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminSweepStatus_WithoutScheduler(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/admin/sweep", entities.RoleLibrarian, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"enabled":false`)
}

// --- auth ---

func TestAuthLogin_RedirectsToIdentityService(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/auth/login", "", nil)
	require.Equal(t, http.StatusFound, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "id.example.com", loc.Host)
	assert.Equal(t, "https://api.example.com/auth/callback", loc.Query().Get("redirect"))
}

func TestAuthCallback_SetsCookieAndRedirects(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?token=abc&redirect=/books", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://app.example.com/books", rr.Header().Get("Location"))

	cookie := rr.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, config.SessionCookieName+"="))
	assert.Contains(t, cookie, "HttpOnly")
}

func TestAuthCallback_JSONAndOpenRedirect(t *testing.T) {
	env := setupTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?token=abc", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"jane@example.com"`)

	req = httptest.NewRequest(http.MethodGet, "/auth/callback?token=abc&redirect=//evil.example.com", nil)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://app.example.com/", rr.Header().Get("Location"))
}

func TestAuthCallback_RateLimited(t *testing.T) {
	env := setupTestRouter(t, nil)
	env.authn.err = apperr.Unauthenticated("Invalid token")

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodGet, "/auth/callback?token=bad", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/auth/callback?token=bad", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestAuthGoogle_NotEnabled(t *testing.T) {
	env := setupTestRouter(t, nil)
	rr := env.do(t, http.MethodPost, "/auth/google", "", map[string]string{"idToken": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthLogout_ClearsCookie(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/auth/logout", entities.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestUsers_RequireAuthentication(t *testing.T) {
	env := setupTestRouter(t, func(cfg *RouterConfig) { cfg.Users = stubUsers{} })

	rr := env.do(t, http.MethodGet, "/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/users/profile", entities.RoleTeacher, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"TEACHER"`)

	rr = env.do(t, http.MethodGet, "/users", entities.RoleTeacher, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPatch, "/users/u2", entities.RoleAdmin, map[string]string{"role": "wizard"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, map[string]any{"role": "role"}, decodeError(t, rr).Details)
}

type stubUsers struct{}

func (stubUsers) Profile(_ context.Context, requester entities.Identity) (*entities.User, error) {
	return &entities.User{ID: requester.UserID, Role: requester.Role}, nil
}

func (stubUsers) Get(_ context.Context, _ entities.Identity, id string) (*entities.User, error) {
	return &entities.User{ID: id}, nil
}

func (stubUsers) List(_ context.Context, _ entities.Identity, page, limit int, _ string) (pagination.Page[entities.User], error) {
	return pagination.NewPage[entities.User](nil, 0, pagination.Normalize(page, limit, pagination.DefaultOpts)), nil
}

func (stubUsers) Update(_ context.Context, _ entities.Identity, id string, _ users.UpdateInput) (*entities.User, error) {
	return &entities.User{ID: id}, nil
}

func TestNoRoute(t *testing.T) {
	env := setupTestRouter(t, nil)
	rr := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Code)
}
