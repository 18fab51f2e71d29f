package marcarpagada

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

// MockService реализует интерфейс marcarpagada.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) MarcarPagada(ctx context.Context, principal models.Principal, id int) (*models.MultaDetalle, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MultaDetalle), args.Error(1)
}

func TestMarcarPagadaHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	principal := models.Principal{UserID: 7, Username: "resident7", Rol: models.RolResidente}

	paid := &models.MultaDetalle{
		Multa: models.Multa{ID: 42, UsuarioID: 7, Motivo: "Ruido excesivo", Estado: models.EstadoPagado},
	}

	tests := []struct {
		name           string
		urlID          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "успешная оплата",
			urlID: "42",
			setupMock: func(m *MockService) {
				m.On("MarcarPagada", mock.Anything, principal, 42).Return(paid, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"estado":"pagado"`,
		},
		{
			name:  "штраф уже оплачен",
			urlID: "42",
			setupMock: func(m *MockService) {
				m.On("MarcarPagada", mock.Anything, principal, 42).
					Return(nil, models.ErrMultaYaPagada).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `La multa ya está pagada`,
		},
		{
			name:  "чужой штраф",
			urlID: "43",
			setupMock: func(m *MockService) {
				m.On("MarcarPagada", mock.Anything, principal, 43).
					Return(nil, multaservice.ErrPermissionDenied).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `forbidden`,
		},
		{
			name:  "отсутствующий штраф",
			urlID: "777",
			setupMock: func(m *MockService) {
				m.On("MarcarPagada", mock.Anything, principal, 777).
					Return(nil, multaservice.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `multa not found`,
		},
		{
			name:           "некорректный id",
			urlID:          "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid id`,
		},
		{
			name:  "ошибка сервиса",
			urlID: "42",
			setupMock: func(m *MockService) {
				m.On("MarcarPagada", mock.Anything, principal, 42).
					Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not mark multa as pagada`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/multas/"+tt.urlID+"/marcar_como_pagada", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, principal)
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
