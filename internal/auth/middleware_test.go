package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	svc := NewService(nil, "test-secret")
	token, err := svc.issueToken("user_123")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	foreign, err := NewService(nil, "other-secret").issueToken("user_123")
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}

	var gotUserID string
	handler := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		userID string
	}{
		{"valid bearer", "Bearer " + token, http.StatusNoContent, "user_123"},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent, "user_123"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{"wrong signing key", "Bearer " + foreign, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if gotUserID != tt.userID {
				t.Errorf("user id = %q, want %q", gotUserID, tt.userID)
			}
		})
	}
}

func TestUserIDFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserIDFromContext(req.Context()); got != "" {
		t.Errorf("user id = %q, want empty for anonymous context", got)
	}
}
