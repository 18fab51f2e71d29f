// Package multacreate реализует HTTP-обработчик создания штрафа
// администратором. Штраф создаётся в состоянии pendiente независимо
// от переданных клиентом полей состояния.
package multacreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/http/response"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
)

// Handler управляет HTTP-запросами на создание штрафов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания штрафа.
type Service interface {
	Create(ctx context.Context, principal models.Principal, req models.DummyMulta) (*models.MultaDetalle, error)
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
// @Summary Создать штраф
// @Description Создаёт штраф для резидента в состоянии pendiente. Доступно только администратору.
// @Tags Multas
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyMulta true "Данные нового штрафа"
// @Success 201 {object} models.MultaDetalle "Созданный штраф"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON, валидация или владелец не резидент"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /multas [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.multa.create"
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

	detalle, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		switch {
		case errors.Is(err, multaservice.ErrPermissionDenied):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, multaservice.ErrSoloResidentes):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Solo se pueden asignar multas a residentes"))
		default:
			log.Error("failed to create multa", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create multa"))
		}
		return
	}

	log.Info("multa created", slog.Int("id", detalle.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(detalle))
}
