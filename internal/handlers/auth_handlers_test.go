package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mbelozerov/storefront/internal/events"
	"github.com/mbelozerov/storefront/internal/gate"
	"github.com/mbelozerov/storefront/internal/models"
	"github.com/mbelozerov/storefront/internal/repo"
	"github.com/mbelozerov/storefront/internal/service"
	"github.com/mbelozerov/storefront/internal/verification"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestHandler(t *testing.T) (*AuthHandler, *gorm.DB) {
	t.Helper()

	db := initTestDB(t)
	svc := &service.AuthService{
		Repo:      &repo.GormRepo{DB: db},
		JWTSecret: []byte("test-jwt-secret"),
		Mailer:    verification.NopMailer{},
		Producer:  events.NewProducer(nil, "auth_events"),
	}
	return &AuthHandler{Svc: svc}, db
}

func jsonContext(e *echo.Echo, method, path string, payload any) (echo.Context, *httptest.ResponseRecorder) {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func signupAndVerify(t *testing.T, h *AuthHandler, db *gorm.DB, email string) *models.User {
	t.Helper()

	e := echo.New()
	c, rec := jsonContext(e, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Test User", "email": email, "password": "password",
	})
	require.NoError(t, h.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.User
	require.NoError(t, db.Where("email = ?", email).First(&stored).Error)

	c, rec = jsonContext(e, http.MethodPost, "/api/auth/verify", map[string]string{
		"email": email, "code": stored.VerificationCode,
	})
	require.NoError(t, h.Verify(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.Where("email = ?", email).First(&stored).Error)
	return &stored
}

func TestSignupHandler(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()

	c, rec := jsonContext(e, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Test User", "email": "test@shop.example", "password": "password",
	})
	require.NoError(t, h.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "test@shop.example", user.Email)
	require.False(t, user.Verified)
	require.NotContains(t, rec.Body.String(), "password")

	// Missing fields.
	c, _ = jsonContext(e, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "x@shop.example",
	})
	err := h.Signup(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	// Malformed email.
	c, _ = jsonContext(e, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Other", "email": "not-an-address", "password": "password",
	})
	err = h.Signup(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	// Duplicate email.
	c, _ = jsonContext(e, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Other", "email": "TEST@shop.example", "password": "password",
	})
	err = h.Signup(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLoginHandler(t *testing.T) {
	h, db := newTestHandler(t)
	signupAndVerify(t, h, db, "test@shop.example")
	e := echo.New()

	c, rec := jsonContext(e, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "test@shop.example", "password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, gate.CookieName, cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)

	c, _ = jsonContext(e, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "test@shop.example", "password": "wrong",
	})
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestVerifyHandlerSetsReadableCookie(t *testing.T) {
	h, db := newTestHandler(t)
	e := echo.New()

	c, rec := jsonContext(e, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Test User", "email": "test@shop.example", "password": "password",
	})
	require.NoError(t, h.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.User
	require.NoError(t, db.Where("email = ?", "test@shop.example").First(&stored).Error)

	c, rec = jsonContext(e, http.MethodPost, "/api/auth/verify", map[string]string{
		"email": "test@shop.example", "code": stored.VerificationCode,
	})
	require.NoError(t, h.Verify(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.False(t, cookies[0].HttpOnly)

	// Bad code.
	c, _ = jsonContext(e, http.MethodPost, "/api/auth/verify", map[string]string{
		"email": "test@shop.example", "code": "000000",
	})
	err := h.Verify(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	// Unknown email reads as bad input on the verify form.
	c, _ = jsonContext(e, http.MethodPost, "/api/auth/verify", map[string]string{
		"email": "missing@shop.example", "code": "123456",
	})
	err = h.Verify(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLogoutSelfDelete(t *testing.T) {
	h, db := newTestHandler(t)
	user := signupAndVerify(t, h, db, "test@shop.example")
	e := echo.New()

	c, rec := jsonContext(e, http.MethodDelete, "/api/auth/logout", nil)
	c.Set(gate.CtxUserID, user.ID)
	c.Set(gate.CtxRole, string(user.Role))

	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)

	var count int64
	db.Model(&models.User{}).Count(&count)
	require.Zero(t, count)
}

func TestLogoutForbiddenForOtherUser(t *testing.T) {
	h, db := newTestHandler(t)
	userA := signupAndVerify(t, h, db, "a@shop.example")
	userB := signupAndVerify(t, h, db, "b@shop.example")
	e := echo.New()

	c, _ := jsonContext(e, http.MethodDelete, "/api/auth/logout", map[string]uint{
		"user_id": userB.ID,
	})
	c.Set(gate.CtxUserID, userA.ID)
	c.Set(gate.CtxRole, string(userA.Role))

	err := h.Logout(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestLogoutAdminDeletesOtherKeepsCookie(t *testing.T) {
	h, db := newTestHandler(t)
	admin := signupAndVerify(t, h, db, "admin@shop.example")
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", admin.ID).
		Update("role", models.RoleAdmin).Error)
	target := signupAndVerify(t, h, db, "target@shop.example")
	e := echo.New()

	c, rec := jsonContext(e, http.MethodDelete, "/api/auth/logout", map[string]uint{
		"user_id": target.ID,
	})
	c.Set(gate.CtxUserID, admin.ID)
	c.Set(gate.CtxRole, string(models.RoleAdmin))

	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)
	// The admin stays logged in after deleting someone else.
	require.Empty(t, rec.Result().Cookies())

	c, _ = jsonContext(e, http.MethodDelete, "/api/auth/logout", map[string]uint{
		"user_id": 9999,
	})
	c.Set(gate.CtxUserID, admin.ID)
	c.Set(gate.CtxRole, string(models.RoleAdmin))

	err := h.Logout(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestChangeEmailHandler(t *testing.T) {
	h, db := newTestHandler(t)
	user := signupAndVerify(t, h, db, "test@shop.example")
	signupAndVerify(t, h, db, "taken@shop.example")
	e := echo.New()

	c, rec := jsonContext(e, http.MethodPost, "/api/users/change-email", map[string]string{
		"email": "fresh@shop.example",
	})
	c.Set(gate.CtxUserID, user.ID)
	c.Set(gate.CtxRole, string(user.Role))

	require.NoError(t, h.ChangeEmail(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Session ends, the new address must be verified first.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.Equal(t, "fresh@shop.example", stored.Email)
	require.False(t, stored.Verified)

	c, _ = jsonContext(e, http.MethodPost, "/api/users/change-email", map[string]string{
		"email": "taken@shop.example",
	})
	c.Set(gate.CtxUserID, user.ID)
	c.Set(gate.CtxRole, string(user.Role))

	err := h.ChangeEmail(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	c, _ = jsonContext(e, http.MethodPost, "/api/users/change-email", map[string]string{
		"email": "not an address",
	})
	c.Set(gate.CtxUserID, user.ID)
	c.Set(gate.CtxRole, string(user.Role))

	err = h.ChangeEmail(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAdminListAndChangeRole(t *testing.T) {
	h, db := newTestHandler(t)
	admin := &AdminHandler{Auth: h}
	user := signupAndVerify(t, h, db, "a@shop.example")
	signupAndVerify(t, h, db, "b@shop.example")
	e := echo.New()

	c, rec := jsonContext(e, http.MethodGet, "/api/admin/users", nil)
	require.NoError(t, admin.ListUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)

	userID := strconv.FormatUint(uint64(user.ID), 10)
	c, rec = jsonContext(e, http.MethodPatch, "/api/admin/users/:id/role", map[string]string{
		"role": "admin",
	})
	c.SetParamNames("id")
	c.SetParamValues(userID)
	require.NoError(t, admin.ChangeRole(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var changed models.User
	require.NoError(t, db.First(&changed, user.ID).Error)
	require.Equal(t, models.RoleAdmin, changed.Role)

	c, _ = jsonContext(e, http.MethodPatch, "/api/admin/users/:id/role", map[string]string{
		"role": "root",
	})
	c.SetParamNames("id")
	c.SetParamValues(userID)
	err := admin.ChangeRole(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}
