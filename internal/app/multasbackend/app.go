package multasbackend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/comunidadapp/multas-backend/internal/cache"
	"github.com/comunidadapp/multas-backend/internal/config"
	"github.com/comunidadapp/multas-backend/internal/lib/jwt"
	"github.com/comunidadapp/multas-backend/internal/migrations"
	authservice "github.com/comunidadapp/multas-backend/internal/services/auth"
	multaservice "github.com/comunidadapp/multas-backend/internal/services/multa"
	usuarioservice "github.com/comunidadapp/multas-backend/internal/services/usuario"
	"github.com/comunidadapp/multas-backend/internal/storage/repository"
)

// App объединяет HTTP-сервер и внешние соединения приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New инициализирует приложение: подключает PostgreSQL и Redis, прогоняет
// миграции, собирает сервисы и маршруты, создаёт административную запись
// начальной загрузки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.AccessTTL, cfg.JWTToken.RefreshTTL)

	authService := authservice.NewAuthService(db, jwtMaker, cfg.PasswordPolicy)
	usuarioService := usuarioservice.NewUsuarioService(db, logger)
	multaService := multaservice.NewMultaService(db, cacheRedis, logger)

	if err = usuarioService.EnsureBootstrapAdmin(ctx,
		cfg.BootstrapAdmin.Username, cfg.BootstrapAdmin.Email, cfg.BootstrapAdmin.Password); err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, authService, usuarioService, multaService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		a.cache.Db.Close()
		return err
	}
}
