package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-account-service/accounts"
	fakeaccountrepo "github.com/jrsteele09/go-account-service/accounts/repofake"
	"github.com/jrsteele09/go-account-service/auth"
	"github.com/jrsteele09/go-account-service/internal/config"
	"github.com/jrsteele09/go-account-service/media/mediafake"
	"github.com/jrsteele09/go-account-service/password"
	"github.com/jrsteele09/go-account-service/server"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "https://app.example.com"

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type testFixture struct {
	cfg        config.Config
	mediaStore *mediafake.FakeMediaStore
	server     *server.Server
}

func loadConfig(t *testing.T, extra map[string]string) config.Config {
	t.Helper()
	values := map[string]string{
		"ENV":                  "TEST",
		"ACCESS_TOKEN_SECRET":  "access-secret",
		"ACCESS_TOKEN_EXPIRY":  "15m",
		"REFRESH_TOKEN_SECRET": "refresh-secret",
		"REFRESH_TOKEN_EXPIRY": "10d",
		"CORS_ORIGIN":          frontendOrigin,
	}
	for k, v := range extra {
		values[k] = v
	}
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

func setupTestFixture(t *testing.T, extra map[string]string) *testFixture {
	t.Helper()
	cfg := loadConfig(t, extra)

	issuer, err := token.NewIssuer(cfg)
	require.NoError(t, err)

	ms := mediafake.NewFakeMediaStore()
	service, err := auth.NewAccountService(
		auth.Repos{Accounts: fakeaccountrepo.NewFakeAccountRepo(), Media: ms},
		password.NewHasher(password.WithWorkers(2)),
		issuer,
	)
	require.NoError(t, err)

	srv, err := server.New(cfg, service)
	require.NoError(t, err)
	return &testFixture{cfg: cfg, mediaStore: ms, server: srv}
}

func (f *testFixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func jsonRequest(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string]string, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func cookieNamed(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func (f *testFixture) registerAndLogin(t *testing.T) (accountID string, access, refresh *http.Cookie) {
	t.Helper()
	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "alice", "email": "alice@x.com", "fullName": "Alice", "password": "secret1",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account accounts.Account
	require.NoError(t, json.Unmarshal(env.Data, &account))

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{
		"username": "alice", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return account.ID, cookieNamed(t, rec, "accessToken"), cookieNamed(t, rec, "refreshToken")
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t, nil)
	rec, env := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestSessionLifecycle(t *testing.T) {
	f := setupTestFixture(t, nil)

	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "Alice", "email": "alice@x.com", "fullName": "Alice", "password": "secret1",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.True(t, env.Success)
	require.Equal(t, http.StatusCreated, env.StatusCode)
	require.NotContains(t, string(env.Data), "password")
	require.NotContains(t, string(env.Data), "refreshToken")

	// Login delivers both tokens as HttpOnly, Secure cookies only.
	rec, env = f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{
		"username": "alice", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := cookieNamed(t, rec, "accessToken")
	refresh := cookieNamed(t, rec, "refreshToken")
	for _, c := range []*http.Cookie{access, refresh} {
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.NotEmpty(t, c.Value)
	}
	require.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)

	var user accounts.Account
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.Equal(t, "alice", user.Username)
	require.NotContains(t, string(env.Data), "accessToken")
	require.NotContains(t, string(env.Data), "refreshToken")
	require.NotContains(t, rec.Body.String(), access.Value)
	require.NotContains(t, rec.Body.String(), refresh.Value)

	// Gate: cookie first, bearer header as fallback.
	rec, env = f.do(t, jsonRequest(t, http.MethodGet, server.RouteGetUserDetails, nil, access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, string(env.Data), `"username":"alice"`)

	req := jsonRequest(t, http.MethodGet, server.RouteGetUserDetails, nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	rec, _ = f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, jsonRequest(t, http.MethodGet, server.RouteGetUserDetails, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "unauthorized request", env.Message)

	// Rotation: the new pair arrives as cookies and in the body.
	rec, env = f.do(t, jsonRequest(t, http.MethodPost, server.RouteRefreshToken, nil, refresh))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair token.Pair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	rotated := cookieNamed(t, rec, "refreshToken")
	require.Equal(t, pair.RefreshToken, rotated.Value)
	require.NotEqual(t, refresh.Value, rotated.Value)
	newAccess := cookieNamed(t, rec, "accessToken")

	// The superseded token, presented in the body, is refused.
	rec, env = f.do(t, jsonRequest(t, http.MethodPost, server.RouteRefreshToken, map[string]string{"refreshToken": refresh.Value}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, env.Message, "log in again")

	// Logout clears the cookies and the stored token.
	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogout, nil, newAccess))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Less(t, cookieNamed(t, rec, "accessToken").MaxAge, 0)
	require.Less(t, cookieNamed(t, rec, "refreshToken").MaxAge, 0)

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteRefreshToken, nil, rotated))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_MissingToken(t *testing.T) {
	f := setupTestFixture(t, nil)
	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteRefreshToken, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Success)
}

func TestLoginFailures(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.registerAndLogin(t)

	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{"username": "alice", "password": "wrongpwd"}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "incorrect password", env.Message)
	require.Empty(t, rec.Result().Cookies())

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{"username": "bob", "password": "secret1"}))
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, server.RouteLogin, strings.NewReader("{not json"))
	rec, _ = f.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "alice", "email": "alice@x.com", "fullName": "Alice", "password": "secret1",
	}))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	f := setupTestFixture(t, nil)
	id, _, _ := f.registerAndLogin(t)

	past, err := token.NewIssuer(f.cfg, token.WithNowTime(func() time.Time { return time.Now().Add(-time.Hour) }))
	require.NoError(t, err)
	expired, err := past.IssueAccess(&accounts.Account{ID: id, Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	req := jsonRequest(t, http.MethodGet, server.RouteGetUserDetails, nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec, env := f.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized request", env.Message)
}

func TestUpdatePasswordAndDetails(t *testing.T) {
	f := setupTestFixture(t, nil)
	_, access, _ := f.registerAndLogin(t)

	rec, _ := f.do(t, jsonRequest(t, http.MethodPost, server.RouteUpdatePassword, map[string]string{"oldPassword": "nope123", "newPassword": "secret2"}, access))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteUpdatePassword, map[string]string{"oldPassword": "secret1", "newPassword": "secret2"}, access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{"username": "alice", "password": "secret2"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteUpdateUserDetails, map[string]string{}, access))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteUpdateUserDetails, map[string]string{"fullName": "Alice L."}, access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, string(env.Data), `"fullName":"Alice L."`)
}

func TestImages(t *testing.T) {
	f := setupTestFixture(t, nil)

	rec, env := f.do(t, multipartRequest(t, server.RouteRegister, map[string]string{
		"username": "alice", "email": "alice@x.com", "fullName": "Alice", "password": "secret1",
	}, map[string]string{"avatar": "first"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var account accounts.Account
	require.NoError(t, json.Unmarshal(env.Data, &account))
	require.True(t, strings.HasPrefix(account.Avatar, "memory://media/avatars/"))

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{"username": "alice", "password": "secret1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	access := cookieNamed(t, rec, "accessToken")

	rec, env = f.do(t, multipartRequest(t, server.RouteUpdateAvatar, nil, map[string]string{"avatar": "second"}, access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated accounts.Account
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.NotEqual(t, account.Avatar, updated.Avatar)
	data, ok := f.mediaStore.Get(updated.Avatar)
	require.True(t, ok)
	require.Equal(t, "second", string(data))
	_, ok = f.mediaStore.Get(account.Avatar)
	require.False(t, ok)

	rec, env = f.do(t, multipartRequest(t, server.RouteUpdateCoverImage, nil, map[string]string{"coverImage": "cover"}, access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, string(env.Data), "memory://media/cover-images/")

	rec, _ = f.do(t, multipartRequest(t, server.RouteUpdateCoverImage, nil, nil, access))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, jsonRequest(t, http.MethodPost, server.RouteUpdateAvatar, map[string]string{}, access))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.mediaStore.FailUploads = io.ErrUnexpectedEOF

	rec, env := f.do(t, multipartRequest(t, server.RouteRegister, map[string]string{
		"username": "alice", "email": "alice@x.com", "fullName": "Alice", "password": "secret1",
	}, map[string]string{"avatar": "img"}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "something went wrong", env.Message)
	require.NotContains(t, rec.Body.String(), "unexpected EOF")
}

func TestRegister_OverlongMultibytePassword(t *testing.T) {
	f := setupTestFixture(t, nil)

	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteRegister, map[string]string{
		"username": "alice", "email": "alice@x.com", "fullName": "Alice", "password": strings.Repeat("😀", 20),
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.False(t, env.Success)
	require.Contains(t, env.Message, "72 bytes")
}

func TestBodyLimit(t *testing.T) {
	f := setupTestFixture(t, map[string]string{"MAX_REQUEST_BODY": "64"})

	rec, env := f.do(t, jsonRequest(t, http.MethodPost, server.RouteLogin, map[string]string{
		"username": strings.Repeat("a", 200), "password": "secret1",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "request body too large", env.Message)
}

func TestCors(t *testing.T) {
	f := setupTestFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, server.RouteLogin, nil)
	req.Header.Set("Origin", frontendOrigin)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, frontendOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteLogin, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = jsonRequest(t, http.MethodGet, server.RouteGetUserDetails, nil)
	req.Header.Set("Origin", frontendOrigin)
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, frontendOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t, nil)
	h := server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, f.server.RecoverMiddleware)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}
