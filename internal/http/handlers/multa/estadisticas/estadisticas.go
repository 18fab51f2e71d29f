// Package estadisticas реализует HTTP-обработчик сводной статистики
// по журналу штрафов для администратора.
package estadisticas

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/http/response"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
)

// Handler управляет HTTP-запросами статистики штрафов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики статистики.
type Service interface {
	Estadisticas(ctx context.Context, principal models.Principal) (models.EstadisticasMultas, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статистика штрафов
// @Description Возвращает счётчики и суммы по всему журналу. Доступно только администратору.
// @Tags Multas
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} models.EstadisticasMultas
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /multas/estadisticas [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.multa.estadisticas"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.GetPrincipal(r.Context())
	if !ok {
		log.Error("principal not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	stats, err := h.service.Estadisticas(r.Context(), principal)
	if err != nil {
		if errors.Is(err, multaservice.ErrPermissionDenied) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
			return
		}
		log.Error("failed to count estadisticas", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not count estadisticas"))
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}
