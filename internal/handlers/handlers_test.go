package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"expense-manager/internal/auth"
	"expense-manager/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testTemplateDir = "../../web/templates"

// HandlersTestSuite exercises the HTTP surface against a real in-memory
// database with an authenticated session.
type HandlersTestSuite struct {
	suite.Suite
	db      *storage.DB
	h       *Handlers
	mux     *http.ServeMux
	session *http.Cookie
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	suite.h = NewHandlers(db, testTemplateDir, false, 30*24*time.Hour)
	suite.mux = newTestRouter(suite.h)

	hash, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err)
	user, err := db.CreateUser("testuser", hash)
	require.NoError(suite.T(), err)

	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.CreateSession(token, user.ID, time.Now().Add(time.Hour)))
	suite.session = &http.Cookie{Name: SessionCookieName, Value: token}
}

func (suite *HandlersTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

// newTestRouter mirrors the server's route table.
func newTestRouter(h *Handlers) *http.ServeMux {
	gated := func(fn http.HandlerFunc) http.Handler { return h.AuthMiddleware(fn) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.Handle("GET /add", gated(h.AddExpenseForm))
	mux.Handle("POST /save", gated(h.SaveExpense))
	mux.Handle("GET /view", gated(h.ViewExpenses))
	mux.Handle("GET /edit/{id}", gated(h.EditExpenseForm))
	mux.Handle("POST /update/{id}", gated(h.UpdateExpense))
	mux.Handle("GET /delete/{id}", gated(h.DeleteExpense))
	mux.Handle("GET /summary/{period}", gated(h.Summary))
	mux.Handle("GET /graph/{period}", gated(h.Graph))
	mux.HandleFunc("GET /{$}", h.Home)
	return mux
}

func (suite *HandlersTestSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.AddCookie(suite.session)
	w := httptest.NewRecorder()
	suite.mux.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(suite.session)
	w := httptest.NewRecorder()
	suite.mux.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) TestAnonymousIsRedirectedToLogin() {
	req := httptest.NewRequest(http.MethodGet, "/view", http.NoBody)
	w := httptest.NewRecorder()
	suite.mux.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "/login", w.Header().Get("Location"))
}

func (suite *HandlersTestSuite) TestSaveAndView() {
	w := suite.postForm("/save", url.Values{
		"amount":   {"12.50"},
		"category": {"Food"},
		"note":     {"lunch"},
	})
	require.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "/view", w.Header().Get("Location"))

	w = suite.get("/view")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(suite.T(), body, "Food")
	assert.Contains(suite.T(), body, "12.50")
	assert.Contains(suite.T(), body, "lunch")
	// Date omitted on save, so the listing must show today's date
	assert.Contains(suite.T(), body, time.Now().Format("2006-01-02"))
}

func (suite *HandlersTestSuite) TestSave_CustomCategoryOverride() {
	w := suite.postForm("/save", url.Values{
		"amount":          {"5"},
		"category":        {"Other"},
		"custom_category": {"Books"},
	})
	require.Equal(suite.T(), http.StatusFound, w.Code)

	body := suite.get("/view").Body.String()
	assert.Contains(suite.T(), body, "Books")
	assert.NotContains(suite.T(), body, "<td>Other</td>")
}

func (suite *HandlersTestSuite) TestSave_NonNumericAmountRejected() {
	w := suite.postForm("/save", url.Values{
		"amount":   {"a lot"},
		"category": {"Food"},
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	body := suite.get("/view").Body.String()
	assert.Contains(suite.T(), body, "No expenses found")
}

func (suite *HandlersTestSuite) TestSave_NoteIsEscaped() {
	w := suite.postForm("/save", url.Values{
		"amount":   {"1"},
		"category": {"Food"},
		"note":     {"<script>alert(1)</script>"},
	})
	require.Equal(suite.T(), http.StatusFound, w.Code)

	body := suite.get("/view").Body.String()
	assert.NotContains(suite.T(), body, "<script>alert(1)</script>")
	assert.Contains(suite.T(), body, "&lt;script&gt;")
}

func (suite *HandlersTestSuite) TestViewWithSearch() {
	suite.postForm("/save", url.Values{"amount": {"12.50"}, "category": {"Food"}, "note": {"pizza"}})
	suite.postForm("/save", url.Values{"amount": {"40"}, "category": {"Travel"}, "note": {"train"}})

	body := suite.get("/view?search=PIZZA").Body.String()
	assert.Contains(suite.T(), body, "pizza")
	assert.NotContains(suite.T(), body, "train")

	body = suite.get("/view?search=yacht").Body.String()
	assert.Contains(suite.T(), body, "No expenses found")
}

func (suite *HandlersTestSuite) TestEditUpdateFlow() {
	suite.postForm("/save", url.Values{"amount": {"10"}, "category": {"Food"}, "note": {"before"}})

	user, err := suite.db.GetUserByUsername("testuser")
	require.NoError(suite.T(), err)
	expenses, err := suite.db.ListExpenses(user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	id := expenses[0].ID

	w := suite.get("/edit/" + formatID(id))
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "before")

	w = suite.postForm("/update/"+formatID(id), url.Values{
		"amount":   {"99.99"},
		"category": {"Bills"},
		"note":     {"after"},
		"spent_on": {"2026-01-15"},
	})
	require.Equal(suite.T(), http.StatusFound, w.Code)

	updated, err := suite.db.GetExpense(id, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Bills", updated.Category)
	assert.Equal(suite.T(), 99.99, updated.Amount)
	assert.Equal(suite.T(), "after", updated.Note)
	assert.Equal(suite.T(), "2026-01-15", updated.SpentOn)
}

func (suite *HandlersTestSuite) TestEdit_UnknownIDIs404() {
	w := suite.get("/edit/9999")
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestUpdate_UnknownIDRedirectsWithoutError() {
	w := suite.postForm("/update/9999", url.Values{
		"amount":   {"1"},
		"category": {"Food"},
	})
	assert.Equal(suite.T(), http.StatusFound, w.Code)
}

func (suite *HandlersTestSuite) TestDeleteFlow() {
	suite.postForm("/save", url.Values{"amount": {"10"}, "category": {"Food"}, "note": {"doomed"}})

	user, err := suite.db.GetUserByUsername("testuser")
	require.NoError(suite.T(), err)
	expenses, err := suite.db.ListExpenses(user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)

	w := suite.get("/delete/" + formatID(expenses[0].ID))
	require.Equal(suite.T(), http.StatusFound, w.Code)

	expenses, err = suite.db.ListExpenses(user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses)

	// Unknown identifier is a silent no-op
	w = suite.get("/delete/9999")
	assert.Equal(suite.T(), http.StatusFound, w.Code)
}

func (suite *HandlersTestSuite) TestSummary() {
	today := time.Now().Format("2006-01-02")
	suite.postForm("/save", url.Values{"amount": {"10"}, "category": {"Food"}, "spent_on": {today}})
	suite.postForm("/save", url.Values{"amount": {"5"}, "category": {"Food"}, "spent_on": {today}})
	suite.postForm("/save", url.Values{"amount": {"20"}, "category": {"Travel"}, "spent_on": {today}})

	w := suite.get("/summary/daily")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(suite.T(), body, "15.00")
	assert.Contains(suite.T(), body, "20.00")
	assert.Contains(suite.T(), body, "35.00")
}

func (suite *HandlersTestSuite) TestGraphServesPNG() {
	today := time.Now().Format("2006-01-02")
	suite.postForm("/save", url.Values{"amount": {"10"}, "category": {"Food"}, "spent_on": {today}})

	w := suite.get("/graph/daily")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "image/png", w.Header().Get("Content-Type"))
	assert.Equal(suite.T(), []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes()[:4])
}

func (suite *HandlersTestSuite) TestExpensesAreScopedToUser() {
	suite.postForm("/save", url.Values{"amount": {"10"}, "category": {"Food"}, "note": {"mine"}})

	// Second user with their own session
	hash, err := auth.HashPassword("pw")
	require.NoError(suite.T(), err)
	other, err := suite.db.CreateUser("other", hash)
	require.NoError(suite.T(), err)
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.db.CreateSession(token, other.ID, time.Now().Add(time.Hour)))

	req := httptest.NewRequest(http.MethodGet, "/view", http.NoBody)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	suite.mux.ServeHTTP(w, req)

	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotContains(suite.T(), w.Body.String(), "mine")
}

func (suite *HandlersTestSuite) TestLoginLogout() {
	// Wrong password: plain message, no redirect
	w := suite.postFormNoSession("/login", url.Values{"username": {"testuser"}, "password": {"wrong"}})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "Invalid username or password")

	// Correct credentials: session cookie and redirect to listing
	w = suite.postFormNoSession("/login", url.Values{"username": {"testuser"}, "password": {"testpass"}})
	require.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "/view", w.Header().Get("Location"))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(suite.T(), cookie, "login must set a session cookie")
	assert.NotEmpty(suite.T(), cookie.Value)

	// Logout clears the session
	req := httptest.NewRequest(http.MethodGet, "/logout", http.NoBody)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	suite.mux.ServeHTTP(rec, req)
	require.Equal(suite.T(), http.StatusFound, rec.Code)

	_, err := suite.db.ValidateSession(cookie.Value)
	assert.Error(suite.T(), err, "session must be gone after logout")
}

func (suite *HandlersTestSuite) TestRegister() {
	// Duplicate username: generic message, no second row
	w := suite.postFormNoSession("/register", url.Values{"username": {"testuser"}, "password": {"x"}})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "User already exists.")

	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)

	// Fresh username: redirect to login, then the credentials authenticate
	w = suite.postFormNoSession("/register", url.Values{"username": {"newuser"}, "password": {"newpass"}})
	require.Equal(suite.T(), http.StatusFound, w.Code)

	w = suite.postFormNoSession("/login", url.Values{"username": {"newuser"}, "password": {"newpass"}})
	assert.Equal(suite.T(), http.StatusFound, w.Code)
}

func (suite *HandlersTestSuite) postFormNoSession(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	suite.mux.ServeHTTP(w, req)
	return w
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
