package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/arvello/backend-console/internal/common"
)

const testSecret = "console-test-secret"

func mintToken(t *testing.T, subject, issuer string, expiresAt time.Time, alg jwa.SignatureAlgorithm) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Subject(subject).
		Issuer(issuer).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(expiresAt).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(alg, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{Secret: testSecret, Issuer: "console"})
	require.NoError(t, err)
	return v
}

func TestParseAccessTokenValid(t *testing.T) {
	v := newTestVerifier(t)
	token := mintToken(t, "user-1", "console", time.Now().Add(time.Hour), jwa.HS256)

	subject, err := v.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", subject)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	v := newTestVerifier(t)
	token := mintToken(t, "user-1", "console", time.Now().Add(-time.Hour), jwa.HS256)

	_, err := v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	v := newTestVerifier(t)
	token := mintToken(t, "user-1", "someone-else", time.Now().Add(time.Hour), jwa.HS256)

	_, err := v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsUnexpectedAlgorithm(t *testing.T) {
	v := newTestVerifier(t)
	token := mintToken(t, "user-1", "console", time.Now().Add(time.Hour), jwa.HS512)

	_, err := v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestRequireAuthAttachesUserID(t *testing.T) {
	v := newTestVerifier(t)
	mw := Middleware{Verifier: v}

	var gotUser string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/bundles", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user-7", "console", time.Now().Add(time.Hour), jwa.HS256))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-7", gotUser)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	v := newTestVerifier(t)
	mw := Middleware{Verifier: v}

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/bundles", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireAuthReadsCookie(t *testing.T) {
	v := newTestVerifier(t)
	mw := Middleware{Verifier: v, AccessCookie: "access_token"}

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/bundles", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: mintToken(t, "user-2", "console", time.Now().Add(time.Hour), jwa.HS256)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}
