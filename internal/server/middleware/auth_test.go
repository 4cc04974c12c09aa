package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	userID uuid.UUID
	role   string
}

func (c *testClaims) GetUserID() uuid.UUID { return c.userID }
func (c *testClaims) GetRole() string      { return c.role }

// testTokenValidator maps literal tokens to principals.
type testTokenValidator struct {
	tokens map[string]*testClaims
}

func newTestTokenValidator() *testTokenValidator {
	return &testTokenValidator{tokens: make(map[string]*testClaims)}
}

func (v *testTokenValidator) add(token string, userID uuid.UUID, role string) {
	v.tokens[token] = &testClaims{userID: userID, role: role}
}

func (v *testTokenValidator) ValidateToken(tokenString string) (Principal, error) {
	c, ok := v.tokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return c, nil
}

func okHandler(t *testing.T, gotUser *uuid.UUID, gotRole *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserID(r)
		require.NoError(t, err)
		*gotUser = id
		*gotRole = GetRole(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	v := newTestTokenValidator()
	userID := uuid.New()
	v.add("valid-test-token", userID, RoleAdmin)

	var gotUser uuid.UUID
	var gotRole string
	handler := AuthMiddleware(v)(okHandler(t, &gotUser, &gotRole))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-test-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, RoleAdmin, gotRole)
}

func TestAuthMiddleware_DefaultsRoleToUser(t *testing.T) {
	v := newTestTokenValidator()
	v.add("legacy", uuid.New(), "")

	var gotUser uuid.UUID
	var gotRole string
	handler := AuthMiddleware(v)(okHandler(t, &gotUser, &gotRole))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer legacy")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RoleUser, gotRole)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	v := newTestTokenValidator()
	v.add("good", uuid.New(), RoleUser)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no scheme", "good"},
		{"wrong scheme", "Basic good"},
		{"empty token", "Bearer "},
		{"extra parts", "Bearer good extra"},
		{"unknown token", "Bearer bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(v)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, called)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin", RoleAdmin, http.StatusNoContent},
		{"user", RoleUser, http.StatusForbidden},
		{"anonymous", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/retrain", nil)
			if tt.role != "" {
				req = req.WithContext(WithPrincipal(req.Context(), uuid.New(), tt.role))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	_, err := GetUserID(req)
	assert.Error(t, err)
	assert.Empty(t, GetRole(req))
}

func TestGetUserID_InvalidType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), userIDKey, "not-a-uuid"))
	_, err := GetUserID(req)
	assert.Error(t, err)
}
