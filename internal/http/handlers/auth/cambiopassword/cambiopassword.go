// Package cambiopassword реализует HTTP-обработчик обычной смены пароля
// с проверкой текущего пароля.
package cambiopassword

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
	"github.com/comunidadapp/multas-backend/internal/lib/jwt"
	"github.com/comunidadapp/multas-backend/internal/lib/password"
	"github.com/comunidadapp/multas-backend/internal/lib/sl"
	"github.com/comunidadapp/multas-backend/internal/models"
	authservice "github.com/comunidadapp/multas-backend/internal/services/auth"
)

// Request — структура входных данных смены пароля.
type Request struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Handler обрабатывает HTTP-запросы смены пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики смены пароля.
type Service interface {
	ChangePassword(ctx context.Context, principal models.Principal, oldPassword, newPassword string) (jwt.TokenPair, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена пароля
// @Description Меняет пароль пользователя после проверки текущего. Возвращает новую пару токенов.
// @Tags Auth
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Старый и новый пароль"
// @Success 200 {object} map[string]any "Пароль изменён"
// @Failure 400 {object} response.ErrorResponse "Неверный текущий пароль либо слабый новый"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /cambio-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.cambiopassword"

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

	var req Request
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

	pair, err := h.service.ChangePassword(r.Context(), principal, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrInvalidCredentials):
			log.Info("wrong current password", slog.String("username", principal.Username))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Contraseña actual incorrecta"))
		case password.IsPolicyViolation(err):
			log.Info("weak password rejected", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to change password", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not change password"))
		}
		return
	}

	log.Info("password changed", slog.String("username", principal.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"message": "Contraseña cambiada correctamente",
	}))
}
