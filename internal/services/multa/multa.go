// Package services содержит бизнес-логику журнала штрафов: создание штрафов
// администратором, ролевую видимость списка, одностороннюю оплату и сводную
// статистику с кешированием.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/comunidadapp/multas-backend/internal/models"
)

// Ошибки уровня журнала штрафов.
var (
	ErrNotFound         = errors.New("multa not found")
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSoloResidentes — попытка назначить штраф пользователю, не являющемуся резидентом.
	ErrSoloResidentes = errors.New("solo se pueden asignar multas a residentes")
	// ErrPagadaInmutable — попытка изменить оплаченный штраф.
	ErrPagadaInmutable = errors.New("multa pagada cannot be modified")
	// ErrFechaPagoInvalida — дата оплаты не соответствует формату 2006-01-02.
	ErrFechaPagoInvalida = errors.New("invalid fecha_pago")
)

const (
	estadisticasCacheKey = "multas:estadisticas"
	multaCacheKeyFmt     = "multa:%d"
	cacheTTL             = time.Minute
)

// MultaRepository определяет методы для работы со штрафами в хранилище.
type MultaRepository interface {
	// CreateMulta добавляет новый штраф и возвращает его ID.
	CreateMulta(ctx context.Context, multa models.Multa) (int, error)
	// GetMulta возвращает штраф по ID вместе с именем владельца.
	GetMulta(ctx context.Context, id int) (*models.Multa, error)
	// ListMultas возвращает список штрафов по фильтру.
	ListMultas(ctx context.Context, filter models.MultaFilter) ([]*models.Multa, error)
	// UpdateMulta обновляет неоплаченный штраф.
	UpdateMulta(ctx context.Context, multa *models.Multa) (int64, error)
	// MarcarPagada атомарно переводит штраф в состояние pagado.
	MarcarPagada(ctx context.Context, id int) (int64, error)
	// RemoveMulta удаляет штраф по ID.
	RemoveMulta(ctx context.Context, id int) (int64, error)
	// CountEstadisticas возвращает сводку по журналу.
	CountEstadisticas(ctx context.Context) (models.EstadisticasMultas, error)
	// CountMultasPendientesByUsuario возвращает число неоплаченных штрафов пользователя.
	CountMultasPendientesByUsuario(ctx context.Context, usuarioID int) (int, error)
	// GetUsuario возвращает пользователя по ID (проверка роли владельца, детальное представление).
	GetUsuario(ctx context.Context, id int) (*models.User, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// MultaService реализует бизнес-логику работы со штрафами, включая кеширование.
type MultaService struct {
	repo  MultaRepository
	cache Cache
	log   *slog.Logger
}

// NewMultaService создает новый экземпляр MultaService.
func NewMultaService(repo MultaRepository, cache Cache, log *slog.Logger) *MultaService {
	return &MultaService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create создаёт новый штраф для резидента. Доступно только администратору;
// владелец обязан существовать и иметь роль residente. Состояние всегда
// инициализируется как pendiente с пустой датой оплаты.
func (s *MultaService) Create(ctx context.Context, principal models.Principal, req models.DummyMulta) (*models.MultaDetalle, error) {
	const op = "services.multa.Create"
	if !principal.CanMutate() {
		return nil, ErrPermissionDenied
	}
	owner, err := s.repo.GetUsuario(ctx, req.UsuarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSoloResidentes
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if owner.Rol != models.RolResidente {
		return nil, ErrSoloResidentes
	}

	multa := models.Multa{
		UsuarioID: req.UsuarioID,
		Motivo:    req.Motivo,
		Monto:     req.Monto,
		Estado:    models.EstadoPendiente,
	}
	if req.Descripcion != "" {
		multa.Descripcion = &req.Descripcion
	}

	id, err := s.repo.CreateMulta(ctx, multa)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new multa", slog.Int("id", id), slog.Int("usuario", req.UsuarioID))
	s.invalidateCaches(id)

	return s.detalle(ctx, id)
}

// Get возвращает штраф по ID. Резидент видит только собственные штрафы;
// чужой штраф отдаётся как отсутствующий, чтобы не раскрывать само его
// существование.
func (s *MultaService) Get(ctx context.Context, principal models.Principal, id int) (*models.MultaDetalle, error) {
	const op = "services.multa.Get"
	var cached models.MultaDetalle
	cacheKey := fmt.Sprintf(multaCacheKeyFmt, id)
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read multa from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		if !principal.CanViewAll() && !principal.Owns(cached.UsuarioID) {
			return nil, ErrNotFound
		}
		return &cached, nil
	}

	multa, err := s.repo.GetMulta(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !principal.CanViewAll() && !principal.Owns(multa.UsuarioID) {
		return nil, ErrNotFound
	}

	detalle, err := s.buildDetalle(ctx, multa)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKey, detalle, cacheTTL); err != nil {
		s.log.Warn("failed to cache multa", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return detalle, nil
}

// List возвращает список штрафов по фильтру. Для резидента базовый набор
// ограничивается собственными записями ДО применения фильтров, поэтому
// подбором параметров выборку расширить нельзя.
func (s *MultaService) List(ctx context.Context, principal models.Principal, filter models.MultaFilter) ([]*models.Multa, error) {
	const op = "services.multa.List"
	if !principal.CanViewAll() {
		ownerID := principal.UserID
		filter.OwnerID = &ownerID
	}
	multas, err := s.repo.ListMultas(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return multas, nil
}

// Update выполняет административное редактирование неоплаченного штрафа.
// Оплаченный штраф полностью неизменяем. Если патч переводит штраф в
// состояние pagado без даты оплаты, дата назначается в том же обновлении.
func (s *MultaService) Update(ctx context.Context, principal models.Principal, id int, req models.DummyMulta) (*models.MultaDetalle, error) {
	const op = "services.multa.Update"
	if !principal.CanMutate() {
		return nil, ErrPermissionDenied
	}
	current, err := s.repo.GetMulta(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.Estado == models.EstadoPagado {
		return nil, ErrPagadaInmutable
	}

	owner, err := s.repo.GetUsuario(ctx, req.UsuarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSoloResidentes
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if owner.Rol != models.RolResidente {
		return nil, ErrSoloResidentes
	}

	updated := models.Multa{
		ID:        id,
		UsuarioID: req.UsuarioID,
		Motivo:    req.Motivo,
		Monto:     req.Monto,
		Estado:    models.EstadoPendiente,
	}
	if req.Descripcion != "" {
		updated.Descripcion = &req.Descripcion
	}
	if req.Estado != "" {
		updated.Estado = models.Estado(req.Estado)
	}
	if updated.Estado == models.EstadoPagado {
		fechaPago := time.Now().Truncate(24 * time.Hour)
		if req.FechaPago != "" {
			fechaPago, err = time.Parse("2006-01-02", req.FechaPago)
			if err != nil {
				return nil, ErrFechaPagoInvalida
			}
		}
		updated.FechaPago = &fechaPago
	}

	rows, err := s.repo.UpdateMulta(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		// Между чтением и записью штраф успели оплатить.
		return nil, ErrPagadaInmutable
	}
	s.log.Info("updated multa", slog.Int("id", id))
	s.invalidateCaches(id)

	return s.detalle(ctx, id)
}

// MarcarPagada переводит штраф в состояние pagado. Доступно администратору
// для любого штрафа и резиденту для собственного; чужой резидент получает
// отказ в доступе. Повторная оплата возвращает models.ErrMultaYaPagada,
// дата первой оплаты при этом не меняется.
func (s *MultaService) MarcarPagada(ctx context.Context, principal models.Principal, id int) (*models.MultaDetalle, error) {
	const op = "services.multa.MarcarPagada"
	multa, err := s.repo.GetMulta(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !principal.IsAdmin() && !principal.Owns(multa.UsuarioID) {
		return nil, ErrPermissionDenied
	}
	if _, err := multa.Estado.MarcarPagada(); err != nil {
		return nil, err
	}

	rows, err := s.repo.MarcarPagada(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		// Конкурентный вызов оплатил штраф первым.
		return nil, models.ErrMultaYaPagada
	}
	s.log.Info("multa marked as pagada", slog.Int("id", id))
	s.invalidateCaches(id)

	return s.detalle(ctx, id)
}

// Remove удаляет штраф. Доступно только администратору.
func (s *MultaService) Remove(ctx context.Context, principal models.Principal, id int) error {
	const op = "services.multa.Remove"
	if !principal.CanMutate() {
		return ErrPermissionDenied
	}
	rows, err := s.repo.RemoveMulta(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	s.log.Info("removed multa", slog.Int("id", id))
	s.invalidateCaches(id)
	return nil
}

// Estadisticas возвращает сводку по журналу штрафов. Доступно только
// администратору; результат кешируется.
func (s *MultaService) Estadisticas(ctx context.Context, principal models.Principal) (models.EstadisticasMultas, error) {
	const op = "services.multa.Estadisticas"
	if !principal.IsAdmin() {
		return models.EstadisticasMultas{}, ErrPermissionDenied
	}

	var cached models.EstadisticasMultas
	found, err := s.cache.Get(estadisticasCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read estadisticas from cache", slog.Any("err", err))
	}
	if found {
		return cached, nil
	}

	stats, err := s.repo.CountEstadisticas(ctx)
	if err != nil {
		return models.EstadisticasMultas{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(estadisticasCacheKey, stats, cacheTTL); err != nil {
		s.log.Warn("failed to cache estadisticas", slog.Any("err", err))
	}
	return stats, nil
}

// CountPendientesPropias возвращает число неоплаченных штрафов самого принципала.
func (s *MultaService) CountPendientesPropias(ctx context.Context, principal models.Principal) (int, error) {
	const op = "services.multa.CountPendientesPropias"
	count, err := s.repo.CountMultasPendientesByUsuario(ctx, principal.UserID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (s *MultaService) detalle(ctx context.Context, id int) (*models.MultaDetalle, error) {
	multa, err := s.repo.GetMulta(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildDetalle(ctx, multa)
}

func (s *MultaService) buildDetalle(ctx context.Context, multa *models.Multa) (*models.MultaDetalle, error) {
	owner, err := s.repo.GetUsuario(ctx, multa.UsuarioID)
	if err != nil {
		return nil, err
	}
	return &models.MultaDetalle{
		Multa: *multa,
		UsuarioDetalle: models.UsuarioResumen{
			ID:               owner.ID,
			Username:         owner.Username,
			Nombre:           owner.NombreCompleto(),
			NumeroResidencia: owner.NumeroResidencia,
			Rol:              owner.Rol,
		},
	}, nil
}

func (s *MultaService) invalidateCaches(id int) {
	cacheKey := fmt.Sprintf(multaCacheKeyFmt, id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate multa cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if err := s.cache.Invalidate(estadisticasCacheKey); err != nil {
		s.log.Warn("failed to invalidate estadisticas cache", slog.Any("err", err))
	}
}
