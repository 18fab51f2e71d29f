package multaupdate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/models"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
)

// MockService реализует интерфейс multaupdate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, principal models.Principal, id int, req models.DummyMulta) (*models.MultaDetalle, error) {
	args := m.Called(ctx, principal, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MultaDetalle), args.Error(1)
}

func TestUpdateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	adminPrincipal := models.Principal{UserID: 1, Username: "admin", Rol: models.RolAdmin}

	updated := &models.MultaDetalle{
		Multa: models.Multa{ID: 42, UsuarioID: 7, Motivo: "Ruido excesivo", Monto: 20000, Estado: models.EstadoPendiente},
	}

	tests := []struct {
		name           string
		urlID          string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "успешное обновление",
			urlID: "42",
			body:  `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, adminPrincipal, 42, mock.MatchedBy(func(req models.DummyMulta) bool {
					return req.UsuarioID == 7 && req.Monto == 20000
				})).Return(updated, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"monto":20000`,
		},
		{
			name:  "перевод в pagado с датой проходит валидацию",
			urlID: "42",
			body:  `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000, "estado": "pagado", "fecha_pago": "2026-08-01"}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, adminPrincipal, 42, mock.MatchedBy(func(req models.DummyMulta) bool {
					return req.Estado == "pagado" && req.FechaPago == "2026-08-01"
				})).Return(updated, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":42`,
		},
		{
			name:  "некорректная дата оплаты",
			urlID: "42",
			body:  `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000, "estado": "pagado", "fecha_pago": "01/08/2026"}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, adminPrincipal, 42, mock.Anything).
					Return(nil, multaservice.ErrFechaPagoInvalida).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid fecha_pago, expected format 2006-01-02`,
		},
		{
			name:           "недопустимое состояние",
			urlID:          "42",
			body:           `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000, "estado": "anulada"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Estado has an invalid value`,
		},
		{
			name:  "оплаченный штраф неизменяем",
			urlID: "42",
			body:  `{"usuario": 7, "motivo": "Motivo nuevo", "monto": 9999}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, adminPrincipal, 42, mock.Anything).
					Return(nil, multaservice.ErrPagadaInmutable).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `No se puede modificar una multa pagada`,
		},
		{
			name:  "отсутствующий штраф",
			urlID: "777",
			body:  `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, adminPrincipal, 777, mock.Anything).
					Return(nil, multaservice.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `multa not found`,
		},
		{
			name:           "некорректный id",
			urlID:          "abc",
			body:           `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid id`,
		},
		{
			name:  "ошибка сервиса",
			urlID: "42",
			body:  `{"usuario": 7, "motivo": "Ruido excesivo", "monto": 20000}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, adminPrincipal, 42, mock.Anything).
					Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not update multa`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPut, "/multas/"+tt.urlID, strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, adminPrincipal)
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
