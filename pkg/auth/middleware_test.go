package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func TestAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jwtService := NewMockJWTServiceInterface(ctrl)

	tests := []struct {
		name         string
		authHeader   string
		prepareMock  func()
		expectedCode int
		expectedUser int
	}{
		{
			name:       "Valid token passes user id downstream",
			authHeader: "Bearer valid-token",
			prepareMock: func() {
				jwtService.EXPECT().ValidateToken("valid-token").Return(&Claims{UserID: 1}, nil)
			},
			expectedCode: http.StatusOK,
			expectedUser: 1,
		},
		{
			name:         "Missing header",
			authHeader:   "",
			prepareMock:  func() {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Header without Bearer prefix",
			authHeader:   "Token abc",
			prepareMock:  func() {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:       "Invalid token",
			authHeader: "Bearer bad-token",
			prepareMock: func() {
				jwtService.EXPECT().ValidateToken("bad-token").Return(nil, errors.New("invalid token"))
			},
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			var gotUserID int
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(jwtService)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, tt.expectedUser, gotUserID)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	assert.Equal(t, 0, UserIDFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), UserIDKey, 42)
	assert.Equal(t, 42, UserIDFromContext(ctx))
}
