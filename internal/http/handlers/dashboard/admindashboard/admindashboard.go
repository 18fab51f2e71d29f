// Package admindashboard реализует HTTP-обработчик административной сводки:
// количество резидентов и неоплаченных штрафов.
package admindashboard

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
	usuarioservice "github.com/comunidadapp/multas-backend/internal/services/usuario"
)

// Handler управляет HTTP-запросами административной сводки.
type Handler struct {
	log      *slog.Logger
	usuarios UsuarioService
	multas   MultaService
}

// UsuarioService описывает часть бизнес-логики пользователей, нужную сводке.
type UsuarioService interface {
	CountResidentes(ctx context.Context, principal models.Principal) (int, error)
}

// MultaService описывает часть бизнес-логики штрафов, нужную сводке.
type MultaService interface {
	Estadisticas(ctx context.Context, principal models.Principal) (models.EstadisticasMultas, error)
}

// New создает новый Handler.
func New(log *slog.Logger, usuarios UsuarioService, multas MultaService) *Handler {
	return &Handler{log: log, usuarios: usuarios, multas: multas}
}

// ServeHTTP godoc
// @Summary Сводка администратора
// @Description Возвращает количество резидентов и неоплаченных штрафов. Доступно только администратору.
// @Tags Dashboard
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]int
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin-dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.admin"
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

	residentes, err := h.usuarios.CountResidentes(r.Context(), principal)
	if err != nil {
		if errors.Is(err, usuarioservice.ErrPermissionDenied) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
			return
		}
		log.Error("failed to count residentes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build dashboard"))
		return
	}

	stats, err := h.multas.Estadisticas(r.Context(), principal)
	if err != nil {
		if errors.Is(err, multaservice.ErrPermissionDenied) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
			return
		}
		log.Error("failed to count estadisticas", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build dashboard"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]int{
		"total_residentes":  residentes,
		"multas_pendientes": stats.MultasPendientes,
	}))
}
