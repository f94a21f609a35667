package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSupportAuth struct {
	token    string
	loginErr error
	created  []string
}

func (s *stubSupportAuth) Login(email, password string) (string, error) {
	if s.loginErr != nil {
		return "", s.loginErr
	}
	return s.token, nil
}

func (s *stubSupportAuth) CreateUser(email, password string) error {
	s.created = append(s.created, email)
	return nil
}

func newSupportRouter(auth *stubSupportAuth) *mux.Router {
	h := NewSupportHandler(nil, auth)
	r := mux.NewRouter()
	r.HandleFunc("/support/login", h.Login).Methods("POST")
	r.HandleFunc("/support/users", h.CreateUser).Methods("POST")
	return r
}

func TestSupportLogin(t *testing.T) {
	auth := &stubSupportAuth{token: "jwt-token"}
	router := newSupportRouter(auth)

	req := httptest.NewRequest(http.MethodPost, "/support/login",
		strings.NewReader(`{"email":"staff@brrow.app","password":"hunter22"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jwt-token")
}

func TestSupportLoginRejectsBadCredentials(t *testing.T) {
	auth := &stubSupportAuth{loginErr: errors.New("invalid credentials")}
	router := newSupportRouter(auth)

	req := httptest.NewRequest(http.MethodPost, "/support/login",
		strings.NewReader(`{"email":"staff@brrow.app","password":"wrong"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSupportCreateUser(t *testing.T) {
	auth := &stubSupportAuth{}
	router := newSupportRouter(auth)

	req := httptest.NewRequest(http.MethodPost, "/support/users",
		strings.NewReader(`{"email":"new@brrow.app","password":"longenough"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"new@brrow.app"}, auth.created)
}

func TestSupportCreateUserValidatesInput(t *testing.T) {
	auth := &stubSupportAuth{}
	router := newSupportRouter(auth)

	for name, body := range map[string]string{
		"bad email":      `{"email":"not-an-email","password":"longenough"}`,
		"short password": `{"email":"new@brrow.app","password":"short"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/support/users", strings.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, auth.created)
		})
	}
}
