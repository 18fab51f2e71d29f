package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/comunidadapp/multas-backend/internal/lib/jwt"
	"github.com/comunidadapp/multas-backend/internal/models"
	authservice "github.com/comunidadapp/multas-backend/internal/services/auth"
)

// MockService реализует интерфейс login.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, username, password string) (*models.User, jwt.TokenPair, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, jwt.TokenPair{}, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(jwt.TokenPair), args.Error(2)
}

func TestLoginHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный вход",
			body: `{"username":"resident7","password":"temp-password"}`,
			setupMock: func(m *MockService) {
				user := &models.User{
					ID:         7,
					Username:   "resident7",
					Email:      "resident7@example.com",
					Rol:        models.RolResidente,
					FirstLogin: true,
				}
				pair := jwt.TokenPair{Access: "access-token", Refresh: "refresh-token"}
				m.On("Login", mock.Anything, "resident7", "temp-password").Return(user, pair, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"first_login":true`,
		},
		{
			name: "неверные учётные данные",
			body: `{"username":"resident7","password":"wrong"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "resident7", "wrong").
					Return(nil, jwt.TokenPair{}, authservice.ErrInvalidCredentials).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Credenciales inválidas`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"username":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "пустой пароль не проходит валидацию",
			body:           `{"username":"resident7","password":""}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Password is a required field`,
		},
		{
			name: "ошибка сервиса",
			body: `{"username":"resident7","password":"temp-password"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "resident7", "temp-password").
					Return(nil, jwt.TokenPair{}, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not login`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
