// Package primerlogin реализует HTTP-обработчик обязательной смены пароля
// при первом входе. Переход одноразовый: повторный запрос без
// административного сброса отклоняется.
package primerlogin

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
)

// Request — структура входных данных первичной смены пароля.
type Request struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// Handler обрабатывает HTTP-запросы первичной смены пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики первичной смены пароля.
type Service interface {
	CompleteFirstLogin(ctx context.Context, principal models.Principal, newPassword string) (jwt.TokenPair, error)
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
// @Summary Смена пароля при первом входе
// @Description Устанавливает постоянный пароль и снимает флаг первого входа. Возвращает новую пару токенов.
// @Tags Auth
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Новый пароль"
// @Success 200 {object} map[string]any "Пароль изменён"
// @Failure 400 {object} response.ErrorResponse "Не первый вход либо слабый пароль"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /primer-login-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.primerlogin"

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

	pair, err := h.service.CompleteFirstLogin(r.Context(), principal, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFirstLogin):
			log.Info("not first login", slog.String("username", principal.Username))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("No es el primer inicio de sesión"))
		case password.IsPolicyViolation(err):
			log.Info("weak password rejected", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to complete first login", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not change password"))
		}
		return
	}

	log.Info("first login completed", slog.String("username", principal.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"message": "Contraseña cambiada correctamente",
	}))
}
