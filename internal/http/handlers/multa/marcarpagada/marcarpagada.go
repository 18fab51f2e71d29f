// Package marcarpagada реализует HTTP-обработчик оплаты штрафа. Переход
// pendiente -> pagado односторонний: повторный вызов отклоняется, дата
// первой оплаты не перезаписывается.
package marcarpagada

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/http/response"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
)

// Handler управляет HTTP-запросами оплаты штрафов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики оплаты штрафа.
type Service interface {
	MarcarPagada(ctx context.Context, principal models.Principal, id int) (*models.MultaDetalle, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметить штраф оплаченным
// @Description Переводит штраф в состояние pagado. Администратор оплачивает любой штраф, резидент — только собственный.
// @Tags Multas
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID штрафа"
// @Success 200 {object} models.MultaDetalle
// @Failure 400 {object} response.ErrorResponse "Штраф уже оплачен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Чужой штраф"
// @Failure 404 {object} response.ErrorResponse "Штраф не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /multas/{id}/marcar_como_pagada [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.multa.marcarpagada"
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

	detalle, err := h.service.MarcarPagada(r.Context(), principal, id)
	if err != nil {
		switch {
		case errors.Is(err, multaservice.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("multa not found"))
		case errors.Is(err, multaservice.ErrPermissionDenied):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, models.ErrMultaYaPagada):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("La multa ya está pagada"))
		default:
			log.Error("failed to mark multa as pagada", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not mark multa as pagada"))
		}
		return
	}

	log.Info("multa marked as pagada", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(detalle))
}
