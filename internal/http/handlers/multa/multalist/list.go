// Package multalist реализует HTTP-обработчик списка штрафов с фильтрами
// по состоянию, владельцу, текстовому поиску и сортировке. Для резидента
// базовый набор всегда ограничен собственными штрафами.
package multalist

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/http/response"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
)

// Handler управляет HTTP-запросами на чтение списка штрафов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка штрафов.
type Service interface {
	List(ctx context.Context, principal models.Principal, filter models.MultaFilter) ([]*models.Multa, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список штрафов
// @Description Возвращает штрафы с учётом роли. Поддерживает фильтры estado, usuario, search и сортировку ordering.
// @Tags Multas
// @Security BearerAuth
// @Produce  json
// @Param estado query string false "Фильтр по состоянию" Enums(pendiente, pagado)
// @Param usuario query int false "Фильтр по ID владельца"
// @Param search query string false "Поиск по мотиву, описанию и имени владельца"
// @Param ordering query string false "Поле сортировки, префикс - меняет направление"
// @Success 200 {array} models.Multa
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры фильтра"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /multas [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.multa.list"
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

	filter, err := parseFilter(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	multas, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		log.Error("failed to list multas", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list multas"))
		return
	}

	render.JSON(w, r, response.OKWithData(multas))
}

func parseFilter(r *http.Request) (models.MultaFilter, error) {
	var filter models.MultaFilter
	query := r.URL.Query()

	if raw := query.Get("estado"); raw != "" {
		estado := models.Estado(raw)
		if !estado.Valid() {
			return filter, errInvalidEstado
		}
		filter.Estado = &estado
	}
	if raw := query.Get("usuario"); raw != "" {
		usuarioID, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errInvalidUsuario
		}
		filter.UsuarioID = &usuarioID
	}
	filter.Search = query.Get("search")
	filter.Ordering = query.Get("ordering")

	return filter, nil
}

var (
	errInvalidEstado  = errors.New("invalid estado, expected pendiente or pagado")
	errInvalidUsuario = errors.New("invalid usuario, expected integer id")
)
