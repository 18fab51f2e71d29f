// Package residentedashboard реализует HTTP-обработчик сводки резидента:
// собственная карточка и число неоплаченных штрафов.
package residentedashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/http/response"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
)

// Handler управляет HTTP-запросами сводки резидента.
type Handler struct {
	log      *slog.Logger
	usuarios UsuarioService
	multas   MultaService
}

// UsuarioService описывает часть бизнес-логики пользователей, нужную сводке.
type UsuarioService interface {
	Profile(ctx context.Context, principal models.Principal) (*models.User, error)
}

// MultaService описывает часть бизнес-логики штрафов, нужную сводке.
type MultaService interface {
	CountPendientesPropias(ctx context.Context, principal models.Principal) (int, error)
}

// New создает новый Handler.
func New(log *slog.Logger, usuarios UsuarioService, multas MultaService) *Handler {
	return &Handler{log: log, usuarios: usuarios, multas: multas}
}

// ServeHTTP godoc
// @Summary Сводка резидента
// @Description Возвращает карточку текущего резидента и число его неоплаченных штрафов.
// @Tags Dashboard
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Доступно только резидентам"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /residente-dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.residente"
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
	if principal.Rol != models.RolResidente {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("forbidden"))
		return
	}

	user, err := h.usuarios.Profile(r.Context(), principal)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build dashboard"))
		return
	}

	pendientes, err := h.multas.CountPendientesPropias(r.Context(), principal)
	if err != nil {
		log.Error("failed to count multas pendientes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build dashboard"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"usuario": map[string]any{
			"id":         user.ID,
			"nombre":     user.NombreCompleto(),
			"residencia": user.NumeroResidencia,
		},
		"multas_pendientes": pendientes,
	}))
}
