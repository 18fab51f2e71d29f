package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comunidadapp/multas-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateMulta(ctx context.Context, multa models.Multa) (int, error) {
	args := m.Called(ctx, multa)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) GetMulta(ctx context.Context, id int) (*models.Multa, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Multa), args.Error(1)
}

func (m *RepoMock) ListMultas(ctx context.Context, filter models.MultaFilter) ([]*models.Multa, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Multa), args.Error(1)
}

func (m *RepoMock) UpdateMulta(ctx context.Context, multa *models.Multa) (int64, error) {
	args := m.Called(ctx, multa)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) MarcarPagada(ctx context.Context, id int) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) RemoveMulta(ctx context.Context, id int) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) CountEstadisticas(ctx context.Context) (models.EstadisticasMultas, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.EstadisticasMultas), args.Error(1)
}

func (m *RepoMock) CountMultasPendientesByUsuario(ctx context.Context, usuarioID int) (int, error) {
	args := m.Called(ctx, usuarioID)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) GetUsuario(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	adminPrincipal    = models.Principal{UserID: 1, Username: "admin", Rol: models.RolAdmin}
	residentPrincipal = models.Principal{UserID: 7, Username: "resident7", Rol: models.RolResidente}
)

func residentOwner() *models.User {
	return &models.User{ID: 7, Username: "resident7", FirstName: "Ana", LastName: "García", Rol: models.RolResidente}
}

func pendingMulta(id, usuarioID int) *models.Multa {
	return &models.Multa{
		ID:            id,
		UsuarioID:     usuarioID,
		Motivo:        "Ruido excesivo",
		Monto:         5000,
		FechaCreacion: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Estado:        models.EstadoPendiente,
	}
}

func expectCacheMiss(c *CacheMock, id int) {
	c.On("Get", fmt.Sprintf(multaCacheKeyFmt, id), mock.Anything).Return(false, nil)
	c.On("Set", fmt.Sprintf(multaCacheKeyFmt, id), mock.Anything, cacheTTL).Return(nil).Maybe()
}

func expectInvalidation(c *CacheMock, id int) {
	c.On("Invalidate", fmt.Sprintf(multaCacheKeyFmt, id)).Return(nil).Once()
	c.On("Invalidate", estadisticasCacheKey).Return(nil).Once()
}

func TestMultaService_Create(t *testing.T) {
	req := models.DummyMulta{
		UsuarioID: 7,
		Motivo:    "Ruido excesivo",
		Monto:     5000,
	}

	t.Run("администратор создаёт штраф резиденту", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil)
		repo.On("CreateMulta", mock.Anything, mock.MatchedBy(func(m models.Multa) bool {
			return m.UsuarioID == 7 &&
				m.Estado == models.EstadoPendiente &&
				m.FechaPago == nil
		})).Return(42, nil).Once()
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		expectInvalidation(cache, 42)
		svc := NewMultaService(repo, cache, newNoopLogger())

		detalle, err := svc.Create(context.Background(), adminPrincipal, req)
		require.NoError(t, err)
		assert.Equal(t, 42, detalle.ID)
		assert.Equal(t, models.EstadoPendiente, detalle.Estado)
		assert.Equal(t, "Ana García", detalle.UsuarioDetalle.Nombre)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("резиденту запрещено создавать", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Create(context.Background(), residentPrincipal, req)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		repo.AssertNotCalled(t, "CreateMulta")
	})

	t.Run("владелец-администратор отклоняется", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetUsuario", mock.Anything, 1).
			Return(&models.User{ID: 1, Username: "admin", Rol: models.RolAdmin}, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		adminReq := req
		adminReq.UsuarioID = 1
		_, err := svc.Create(context.Background(), adminPrincipal, adminReq)
		assert.ErrorIs(t, err, ErrSoloResidentes)
	})

	t.Run("несуществующий владелец отклоняется", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetUsuario", mock.Anything, 777).Return(nil, sql.ErrNoRows).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		ghostReq := req
		ghostReq.UsuarioID = 777
		_, err := svc.Create(context.Background(), adminPrincipal, ghostReq)
		assert.ErrorIs(t, err, ErrSoloResidentes)
	})
}

func TestMultaService_Get(t *testing.T) {
	t.Run("резидент читает собственный штраф", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		expectCacheMiss(cache, 42)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		detalle, err := svc.Get(context.Background(), residentPrincipal, 42)
		require.NoError(t, err)
		assert.Equal(t, 42, detalle.ID)
	})

	t.Run("чужой штраф неотличим от отсутствующего", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		expectCacheMiss(cache, 43)
		repo.On("GetMulta", mock.Anything, 43).Return(pendingMulta(43, 9), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Get(context.Background(), residentPrincipal, 43)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("кеш не обходит проверку владельца", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cache.On("Get", fmt.Sprintf(multaCacheKeyFmt, 43), mock.Anything).
			Run(func(args mock.Arguments) {
				detalle := args.Get(1).(*models.MultaDetalle)
				detalle.Multa = *pendingMulta(43, 9)
			}).Return(true, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Get(context.Background(), residentPrincipal, 43)
		assert.ErrorIs(t, err, ErrNotFound)
		repo.AssertNotCalled(t, "GetMulta")
	})

	t.Run("отсутствующий штраф", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		expectCacheMiss(cache, 777)
		repo.On("GetMulta", mock.Anything, 777).Return(nil, sql.ErrNoRows).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Get(context.Background(), adminPrincipal, 777)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMultaService_List(t *testing.T) {
	t.Run("резидент видит только собственные штрафы", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		otherID := 9
		repo.On("ListMultas", mock.Anything, mock.MatchedBy(func(f models.MultaFilter) bool {
			// Базовый набор ограничен владельцем даже при фильтре по чужому ID.
			return f.OwnerID != nil && *f.OwnerID == 7 && f.UsuarioID != nil && *f.UsuarioID == otherID
		})).Return([]*models.Multa{}, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		multas, err := svc.List(context.Background(), residentPrincipal, models.MultaFilter{UsuarioID: &otherID})
		require.NoError(t, err)
		assert.Empty(t, multas)
		repo.AssertExpectations(t)
	})

	t.Run("администратор без ограничения владельца", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("ListMultas", mock.Anything, mock.MatchedBy(func(f models.MultaFilter) bool {
			return f.OwnerID == nil
		})).Return([]*models.Multa{pendingMulta(42, 7)}, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		multas, err := svc.List(context.Background(), adminPrincipal, models.MultaFilter{})
		require.NoError(t, err)
		assert.Len(t, multas, 1)
	})
}

func TestMultaService_Update(t *testing.T) {
	req := models.DummyMulta{
		UsuarioID: 7,
		Motivo:    "Ruido excesivo, actualizado",
		Monto:     7500,
	}

	t.Run("оплаченный штраф неизменяем", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		paid := pendingMulta(42, 7)
		paid.Estado = models.EstadoPagado
		repo.On("GetMulta", mock.Anything, 42).Return(paid, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Update(context.Background(), adminPrincipal, 42, req)
		assert.ErrorIs(t, err, ErrPagadaInmutable)
		repo.AssertNotCalled(t, "UpdateMulta")
	})

	t.Run("резиденту запрещено", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Update(context.Background(), residentPrincipal, 42, req)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("перевод в pagado назначает дату оплаты", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil)
		repo.On("UpdateMulta", mock.Anything, mock.MatchedBy(func(m *models.Multa) bool {
			return m.Estado == models.EstadoPagado && m.FechaPago != nil
		})).Return(int64(1), nil).Once()
		paid := pendingMulta(42, 7)
		paid.Estado = models.EstadoPagado
		repo.On("GetMulta", mock.Anything, 42).Return(paid, nil).Once()
		expectInvalidation(cache, 42)
		svc := NewMultaService(repo, cache, newNoopLogger())

		paidReq := req
		paidReq.Estado = "pagado"
		detalle, err := svc.Update(context.Background(), adminPrincipal, 42, paidReq)
		require.NoError(t, err)
		assert.Equal(t, models.EstadoPagado, detalle.Estado)
		repo.AssertExpectations(t)
	})

	t.Run("явная дата оплаты принимается", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil)
		expected := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		repo.On("UpdateMulta", mock.Anything, mock.MatchedBy(func(m *models.Multa) bool {
			return m.FechaPago != nil && m.FechaPago.Equal(expected)
		})).Return(int64(1), nil).Once()
		paid := pendingMulta(42, 7)
		paid.Estado = models.EstadoPagado
		paid.FechaPago = &expected
		repo.On("GetMulta", mock.Anything, 42).Return(paid, nil).Once()
		expectInvalidation(cache, 42)
		svc := NewMultaService(repo, cache, newNoopLogger())

		paidReq := req
		paidReq.Estado = "pagado"
		paidReq.FechaPago = "2026-08-01"
		_, err := svc.Update(context.Background(), adminPrincipal, 42, paidReq)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("некорректная дата оплаты", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		badReq := req
		badReq.Estado = "pagado"
		badReq.FechaPago = "01/08/2026"
		_, err := svc.Update(context.Background(), adminPrincipal, 42, badReq)
		assert.ErrorIs(t, err, ErrFechaPagoInvalida)
		repo.AssertNotCalled(t, "UpdateMulta")
	})

	t.Run("конкурентная оплата между чтением и записью", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil).Once()
		repo.On("UpdateMulta", mock.Anything, mock.Anything).Return(int64(0), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Update(context.Background(), adminPrincipal, 42, req)
		assert.ErrorIs(t, err, ErrPagadaInmutable)
	})
}

func TestMultaService_MarcarPagada(t *testing.T) {
	t.Run("резидент оплачивает собственный штраф", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("MarcarPagada", mock.Anything, 42).Return(int64(1), nil).Once()
		paid := pendingMulta(42, 7)
		paid.Estado = models.EstadoPagado
		fechaPago := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
		paid.FechaPago = &fechaPago
		repo.On("GetMulta", mock.Anything, 42).Return(paid, nil).Once()
		repo.On("GetUsuario", mock.Anything, 7).Return(residentOwner(), nil).Once()
		expectInvalidation(cache, 42)
		svc := NewMultaService(repo, cache, newNoopLogger())

		detalle, err := svc.MarcarPagada(context.Background(), residentPrincipal, 42)
		require.NoError(t, err)
		assert.Equal(t, models.EstadoPagado, detalle.Estado)
		assert.NotNil(t, detalle.FechaPago)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("чужой штраф — отказ в доступе", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 43).Return(pendingMulta(43, 9), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.MarcarPagada(context.Background(), residentPrincipal, 43)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		repo.AssertNotCalled(t, "MarcarPagada")
	})

	t.Run("администратор оплачивает любой штраф", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 43).Return(pendingMulta(43, 9), nil).Once()
		repo.On("MarcarPagada", mock.Anything, 43).Return(int64(1), nil).Once()
		paid := pendingMulta(43, 9)
		paid.Estado = models.EstadoPagado
		repo.On("GetMulta", mock.Anything, 43).Return(paid, nil).Once()
		repo.On("GetUsuario", mock.Anything, 9).
			Return(&models.User{ID: 9, Username: "resident9", Rol: models.RolResidente}, nil).Once()
		expectInvalidation(cache, 43)
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.MarcarPagada(context.Background(), adminPrincipal, 43)
		require.NoError(t, err)
	})

	t.Run("повторная оплата отклоняется", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		paid := pendingMulta(42, 7)
		paid.Estado = models.EstadoPagado
		repo.On("GetMulta", mock.Anything, 42).Return(paid, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.MarcarPagada(context.Background(), residentPrincipal, 42)
		assert.ErrorIs(t, err, models.ErrMultaYaPagada)
		repo.AssertNotCalled(t, "MarcarPagada")
	})

	t.Run("конкурентная оплата", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 42).Return(pendingMulta(42, 7), nil).Once()
		repo.On("MarcarPagada", mock.Anything, 42).Return(int64(0), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.MarcarPagada(context.Background(), residentPrincipal, 42)
		assert.ErrorIs(t, err, models.ErrMultaYaPagada)
	})

	t.Run("отсутствующий штраф", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("GetMulta", mock.Anything, 777).Return(nil, sql.ErrNoRows).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.MarcarPagada(context.Background(), adminPrincipal, 777)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMultaService_Estadisticas(t *testing.T) {
	stats := models.EstadisticasMultas{
		TotalMultas:      5,
		MultasPendientes: 3,
		MultasPagadas:    2,
		MontoPendiente:   15000,
		MontoPagado:      8000,
	}

	t.Run("администратор получает сводку", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cache.On("Get", estadisticasCacheKey, mock.Anything).Return(false, nil).Once()
		repo.On("CountEstadisticas", mock.Anything).Return(stats, nil).Once()
		cache.On("Set", estadisticasCacheKey, stats, cacheTTL).Return(nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		got, err := svc.Estadisticas(context.Background(), adminPrincipal)
		require.NoError(t, err)
		assert.Equal(t, stats, got)
		cache.AssertExpectations(t)
	})

	t.Run("кешированная сводка не ходит в базу", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cache.On("Get", estadisticasCacheKey, mock.Anything).
			Run(func(args mock.Arguments) {
				*args.Get(1).(*models.EstadisticasMultas) = stats
			}).Return(true, nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		got, err := svc.Estadisticas(context.Background(), adminPrincipal)
		require.NoError(t, err)
		assert.Equal(t, stats, got)
		repo.AssertNotCalled(t, "CountEstadisticas")
	})

	t.Run("резиденту запрещено", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Estadisticas(context.Background(), residentPrincipal)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("ошибка хранилища", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cache.On("Get", estadisticasCacheKey, mock.Anything).Return(false, nil).Once()
		repo.On("CountEstadisticas", mock.Anything).
			Return(models.EstadisticasMultas{}, errors.New("db down")).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		_, err := svc.Estadisticas(context.Background(), adminPrincipal)
		assert.Error(t, err)
	})
}

func TestMultaService_Remove(t *testing.T) {
	t.Run("администратор удаляет", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("RemoveMulta", mock.Anything, 42).Return(int64(1), nil).Once()
		expectInvalidation(cache, 42)
		svc := NewMultaService(repo, cache, newNoopLogger())

		require.NoError(t, svc.Remove(context.Background(), adminPrincipal, 42))
		cache.AssertExpectations(t)
	})

	t.Run("резиденту запрещено", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewMultaService(repo, cache, newNoopLogger())

		err := svc.Remove(context.Background(), residentPrincipal, 42)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("отсутствующий штраф", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		repo.On("RemoveMulta", mock.Anything, 777).Return(int64(0), nil).Once()
		svc := NewMultaService(repo, cache, newNoopLogger())

		err := svc.Remove(context.Background(), adminPrincipal, 777)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
