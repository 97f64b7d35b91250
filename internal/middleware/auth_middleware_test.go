package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"notevault-server/internal/apperror"
	"notevault-server/internal/domain"
)

type stubResolver struct {
	user *domain.User
	err  error

	gotToken string
}

func (s *stubResolver) ResolveToken(_ context.Context, token string) (*domain.User, error) {
	s.gotToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *http.Request)
		resolver   *stubResolver
		wantStatus int
		wantUserID int64
	}{
		{
			name:       "missing token",
			setup:      func(r *http.Request) {},
			resolver:   &stubResolver{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "token from cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
			},
			resolver:   &stubResolver{user: &domain.User{ID: 7}},
			wantStatus: http.StatusOK,
			wantUserID: 7,
		},
		{
			name: "token from bearer header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer header-token")
			},
			resolver:   &stubResolver{user: &domain.User{ID: 9}},
			wantStatus: http.StatusOK,
			wantUserID: 9,
		},
		{
			name: "cookie wins over header",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
				r.Header.Set("Authorization", "Bearer header-token")
			},
			resolver:   &stubResolver{user: &domain.User{ID: 7}},
			wantStatus: http.StatusOK,
			wantUserID: 7,
		},
		{
			name: "resolver rejects token",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "stale-token"})
			},
			resolver:   &stubResolver{err: apperror.Unauthorized("invalid token")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "malformed authorization header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "token-without-scheme")
			},
			resolver:   &stubResolver{user: &domain.User{ID: 7}},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID int64
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID = GetUserID(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			AuthMiddleware(tt.resolver)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK && gotUserID != tt.wantUserID {
				t.Errorf("expected user id %d in context, got %d", tt.wantUserID, gotUserID)
			}
		})
	}
}

func TestGetUserID_MissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(req); got != 0 {
		t.Errorf("expected 0 for request without identity, got %d", got)
	}
}
