// Package multasbackend собирает приложение: маршруты, зависимости и
// жизненный цикл HTTP-сервера.
package multasbackend

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/comunidadapp/multas-backend/internal/http/handlers/auth/cambiopassword"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/auth/login"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/auth/primerlogin"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/auth/refresh"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/dashboard/admindashboard"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/dashboard/residentedashboard"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/estadisticas"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/marcarpagada"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/multacreate"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/multalist"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/multaread"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/multaremove"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/multa/multaupdate"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/perfil"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/resetpassword"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/usuariocreate"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/usuariolist"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/usuarioread"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/usuarioremove"
	"github.com/comunidadapp/multas-backend/internal/http/handlers/usuario/usuarioupdate"
	"github.com/comunidadapp/multas-backend/internal/http/middlewarectx"
	"github.com/comunidadapp/multas-backend/internal/lib/jwt"
	authservice "github.com/comunidadapp/multas-backend/internal/services/auth"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
	usuarioservice "github.com/comunidadapp/multas-backend/internal/services/usuario"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	authService *authservice.AuthService,
	usuarioService *usuarioservice.UsuarioService,
	multaService *multaservice.MultaService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Post("/token/refresh", refresh.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/primer-login-password", primerlogin.New(logger, authService).ServeHTTP)
			r.Post("/cambio-password", cambiopassword.New(logger, authService).ServeHTTP)

			r.Post("/usuarios", usuariocreate.New(logger, usuarioService).ServeHTTP)
			r.Get("/usuarios", usuariolist.New(logger, usuarioService).ServeHTTP)
			r.Get("/usuarios/mi-perfil", perfil.New(logger, usuarioService).ServeHTTP)
			r.Get("/usuarios/{id}", usuarioread.New(logger, usuarioService).ServeHTTP)
			r.Put("/usuarios/{id}", usuarioupdate.New(logger, usuarioService).ServeHTTP)
			r.Patch("/usuarios/{id}", usuarioupdate.New(logger, usuarioService).ServeHTTP)
			r.Delete("/usuarios/{id}", usuarioremove.New(logger, usuarioService).ServeHTTP)
			r.Post("/usuarios/{id}/reset-password", resetpassword.New(logger, usuarioService).ServeHTTP)

			r.Post("/multas", multacreate.New(logger, multaService).ServeHTTP)
			r.Get("/multas", multalist.New(logger, multaService).ServeHTTP)
			r.Get("/multas/estadisticas", estadisticas.New(logger, multaService).ServeHTTP)
			r.Get("/multas/{id}", multaread.New(logger, multaService).ServeHTTP)
			r.Put("/multas/{id}", multaupdate.New(logger, multaService).ServeHTTP)
			r.Patch("/multas/{id}", multaupdate.New(logger, multaService).ServeHTTP)
			r.Delete("/multas/{id}", multaremove.New(logger, multaService).ServeHTTP)
			r.Post("/multas/{id}/marcar_como_pagada", marcarpagada.New(logger, multaService).ServeHTTP)

			r.Get("/admin-dashboard", admindashboard.New(logger, usuarioService, multaService).ServeHTTP)
			r.Get("/residente-dashboard", residentedashboard.New(logger, usuarioService, multaService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
