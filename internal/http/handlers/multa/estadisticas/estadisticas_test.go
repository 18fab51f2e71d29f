package estadisticas

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
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
)

// MockService реализует интерфейс estadisticas.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Estadisticas(ctx context.Context, principal models.Principal) (models.EstadisticasMultas, error) {
	args := m.Called(ctx, principal)
	return args.Get(0).(models.EstadisticasMultas), args.Error(1)
}

func TestEstadisticasHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	adminPrincipal := models.Principal{UserID: 1, Username: "admin", Rol: models.RolAdmin}
	residentPrincipal := models.Principal{UserID: 7, Username: "resident7", Rol: models.RolResidente}

	tests := []struct {
		name           string
		principal      models.Principal
		withPrincipal  bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:          "администратор получает сводку",
			principal:     adminPrincipal,
			withPrincipal: true,
			setupMock: func(m *MockService) {
				m.On("Estadisticas", mock.Anything, adminPrincipal).Return(models.EstadisticasMultas{
					TotalMultas:      5,
					MultasPendientes: 3,
					MultasPagadas:    2,
					MontoPendiente:   15000,
					MontoPagado:      8000,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"multas_pendientes":3`,
		},
		{
			name:          "резиденту запрещено",
			principal:     residentPrincipal,
			withPrincipal: true,
			setupMock: func(m *MockService) {
				m.On("Estadisticas", mock.Anything, residentPrincipal).
					Return(models.EstadisticasMultas{}, multaservice.ErrPermissionDenied).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `forbidden`,
		},
		{
			name:           "без принципала",
			withPrincipal:  false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
		{
			name:          "ошибка сервиса",
			principal:     adminPrincipal,
			withPrincipal: true,
			setupMock: func(m *MockService) {
				m.On("Estadisticas", mock.Anything, adminPrincipal).
					Return(models.EstadisticasMultas{}, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not count estadisticas`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/multas/estadisticas", nil)
			if tt.withPrincipal {
				ctx := context.WithValue(req.Context(), middlewarectx.PrincipalKey, tt.principal)
				req = req.WithContext(ctx)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
