// Package multaupdate реализует HTTP-обработчик административного
// редактирования штрафа. Оплаченный штраф полностью неизменяем.
package multaupdate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/http/response"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
)

// Handler управляет HTTP-запросами на обновление штрафов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обновления штрафа.
type Service interface {
	Update(ctx context.Context, principal models.Principal, id int, req models.DummyMulta) (*models.MultaDetalle, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить штраф
// @Description Редактирует неоплаченный штраф. Оплаченный штраф не изменяется. Доступно только администратору.
// @Tags Multas
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path int true "ID штрафа"
// @Param request body models.DummyMulta true "Новые данные штрафа"
// @Success 200 {object} models.MultaDetalle
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON, валидация либо штраф уже оплачен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Штраф не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /multas/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.multa.update"
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

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	var req models.DummyMulta
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	detalle, err := h.service.Update(r.Context(), principal, id, req)
	if err != nil {
		switch {
		case errors.Is(err, multaservice.ErrPermissionDenied):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, multaservice.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("multa not found"))
		case errors.Is(err, multaservice.ErrPagadaInmutable):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("No se puede modificar una multa pagada"))
		case errors.Is(err, multaservice.ErrSoloResidentes):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Solo se pueden asignar multas a residentes"))
		case errors.Is(err, multaservice.ErrFechaPagoInvalida):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid fecha_pago, expected format 2006-01-02"))
		default:
			log.Error("failed to update multa", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update multa"))
		}
		return
	}

	log.Info("multa updated", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(detalle))
}
