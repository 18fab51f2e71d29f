package usuariocreate

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

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/models"
	usuarioservice "github.com/comunidadapp/multas-backend/internal/services/usuario"
)

// MockService реализует интерфейс usuariocreate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, principal models.Principal, req models.DummyUsuario) (*models.User, error) {
	args := m.Called(ctx, principal, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestUsuarioCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	adminPrincipal := models.Principal{UserID: 1, Username: "admin", Rol: models.RolAdmin}

	validBody := `{"username":"resident9","email":"resident9@example.com","password":"temp-pass","first_name":"Luis","numero_residencia":"A-12"}`

	tests := []struct {
		name           string
		body           string
		principal      models.Principal
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "администратор создаёт пользователя",
			body:      validBody,
			principal: adminPrincipal,
			setupMock: func(m *MockService) {
				created := &models.User{
					ID:         9,
					Username:   "resident9",
					Email:      "resident9@example.com",
					Rol:        models.RolResidente,
					FirstLogin: true,
					IsActive:   true,
				}
				m.On("Create", mock.Anything, adminPrincipal, mock.MatchedBy(func(r models.DummyUsuario) bool {
					return r.Username == "resident9" && r.Password == "temp-pass"
				})).Return(created, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"first_login":true`,
		},
		{
			name:      "резиденту запрещено",
			body:      validBody,
			principal: models.Principal{UserID: 7, Username: "resident7", Rol: models.RolResidente},
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, usuarioservice.ErrPermissionDenied).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `forbidden`,
		},
		{
			name:      "без временного пароля",
			body:      `{"username":"resident9","email":"resident9@example.com"}`,
			principal: adminPrincipal,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, usuarioservice.ErrPasswordRequired).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field password is a required field`,
		},
		{
			name:      "занятый username",
			body:      validBody,
			principal: adminPrincipal,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, usuarioservice.ErrUsernameTaken).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field username must be unique`,
		},
		{
			name:           "некорректный email",
			body:           `{"username":"resident9","email":"not-an-email","password":"temp-pass"}`,
			principal:      adminPrincipal,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Email must be a valid email`,
		},
		{
			name:           "недопустимая роль",
			body:           `{"username":"resident9","email":"resident9@example.com","password":"temp-pass","rol":"portero"}`,
			principal:      adminPrincipal,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Rol has an invalid value`,
		},
		{
			name:      "ошибка сервиса",
			body:      validBody,
			principal: adminPrincipal,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not create usuario`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/usuarios", strings.NewReader(tt.body))
			ctx := context.WithValue(req.Context(), middlewarectx.PrincipalKey, tt.principal)
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
