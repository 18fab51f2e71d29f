// Package services содержит логику бизнес-уровня для управления пользователями:
// создание резидентов администратором, ролевую видимость списка и профиля,
// административное редактирование и сброс пароля.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/comunidadapp/multas-backend/internal/lib/password"
	"github.com/comunidadapp/multas-backend/internal/models"
	"github.com/comunidadapp/multas-backend/internal/storage/repository"
)

// Ошибки уровня управления пользователями.
var (
	ErrNotFound         = errors.New("usuario not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrPasswordRequired = errors.New("temporary password is required")
	// ErrUsernameTaken — пользователь с таким username уже существует.
	ErrUsernameTaken = errors.New("username is already taken")
)

// UsuarioRepository определяет методы для работы с пользователями в хранилище.
type UsuarioRepository interface {
	// CreateUsuario сохраняет нового пользователя и возвращает его ID.
	CreateUsuario(ctx context.Context, user models.User) (int, error)
	// GetUsuario возвращает пользователя по ID.
	GetUsuario(ctx context.Context, id int) (*models.User, error)
	// GetUsuarioByUsername возвращает пользователя по имени.
	GetUsuarioByUsername(ctx context.Context, username string) (*models.User, error)
	// ListUsuarios возвращает всех пользователей.
	ListUsuarios(ctx context.Context) ([]*models.User, error)
	// UpdateUsuario сохраняет изменённые поля пользователя.
	UpdateUsuario(ctx context.Context, user *models.User) (int64, error)
	// ResetFirstLogin назначает временный пароль и возвращает флаг первого входа.
	ResetFirstLogin(ctx context.Context, id int, passwordHash string) (int64, error)
	// RemoveUsuario удаляет пользователя по ID.
	RemoveUsuario(ctx context.Context, id int) (int64, error)
	// CountResidentes возвращает количество резидентов.
	CountResidentes(ctx context.Context) (int, error)
}

// UsuarioService реализует бизнес-логику работы с пользователями.
type UsuarioService struct {
	repo UsuarioRepository
	log  *slog.Logger
}

// NewUsuarioService создает новый экземпляр UsuarioService.
func NewUsuarioService(repo UsuarioRepository, log *slog.Logger) *UsuarioService {
	return &UsuarioService{
		repo: repo,
		log:  log,
	}
}

// Create создаёт нового пользователя с временным паролем. Доступно только
// администратору. Флаг первого входа устанавливается безусловно, независимо
// от намерений вызывающего.
func (s *UsuarioService) Create(ctx context.Context, principal models.Principal, req models.DummyUsuario) (*models.User, error) {
	const op = "services.usuario.Create"
	if !principal.CanMutate() {
		return nil, ErrPermissionDenied
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rol := models.Rol(req.Rol)
	if rol == "" {
		rol = models.RolResidente
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Rol:          rol,
		PasswordHash: hashed,
		FirstLogin:   true,
		IsActive:     true,
	}
	if req.NumeroResidencia != "" {
		user.NumeroResidencia = &req.NumeroResidencia
	}
	if req.Telefono != "" {
		user.Telefono = &req.Telefono
	}

	id, err := s.repo.CreateUsuario(ctx, *user)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id
	s.log.Info("created new usuario", slog.Int("id", id), slog.String("rol", string(rol)))
	return user, nil
}

// List возвращает пользователей в зависимости от роли принципала:
// администратор видит всех, резидент — ровно собственную запись.
func (s *UsuarioService) List(ctx context.Context, principal models.Principal) ([]*models.User, error) {
	const op = "services.usuario.List"
	if principal.CanViewAll() {
		users, err := s.repo.ListUsuarios(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return users, nil
	}
	self, err := s.repo.GetUsuario(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return []*models.User{self}, nil
}

// Get возвращает пользователя по ID с учётом видимости: резиденту доступна
// только собственная запись, чужая отдаётся как отсутствующая.
func (s *UsuarioService) Get(ctx context.Context, principal models.Principal, id int) (*models.User, error) {
	const op = "services.usuario.Get"
	if !principal.CanViewAll() && !principal.Owns(id) {
		return nil, ErrNotFound
	}
	user, err := s.repo.GetUsuario(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Profile возвращает собственную запись принципала.
func (s *UsuarioService) Profile(ctx context.Context, principal models.Principal) (*models.User, error) {
	const op = "services.usuario.Profile"
	user, err := s.repo.GetUsuario(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Update применяет частичное обновление пользователя. Доступно только
// администратору; nil-поля патча не изменяются.
func (s *UsuarioService) Update(ctx context.Context, principal models.Principal, id int, patch models.UsuarioPatch) (*models.User, error) {
	const op = "services.usuario.Update"
	if !principal.CanMutate() {
		return nil, ErrPermissionDenied
	}
	user, err := s.repo.GetUsuario(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.NumeroResidencia != nil {
		user.NumeroResidencia = patch.NumeroResidencia
	}
	if patch.Telefono != nil {
		user.Telefono = patch.Telefono
	}
	if patch.Rol != nil {
		user.Rol = models.Rol(*patch.Rol)
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	rows, err := s.repo.UpdateUsuario(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	s.log.Info("updated usuario", slog.Int("id", id))
	return user, nil
}

// ResetPassword выполняет административный сброс: назначает временный пароль
// и возвращает пользователя в состояние обязательной смены пароля.
func (s *UsuarioService) ResetPassword(ctx context.Context, principal models.Principal, id int, tempPassword string) error {
	const op = "services.usuario.ResetPassword"
	if !principal.CanMutate() {
		return ErrPermissionDenied
	}
	if tempPassword == "" {
		return ErrPasswordRequired
	}
	hashed, err := password.GetHash(tempPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.repo.ResetFirstLogin(ctx, id, hashed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	s.log.Info("reset usuario password", slog.Int("id", id))
	return nil
}

// Remove удаляет пользователя. Доступно только администратору.
func (s *UsuarioService) Remove(ctx context.Context, principal models.Principal, id int) error {
	const op = "services.usuario.Remove"
	if !principal.CanMutate() {
		return ErrPermissionDenied
	}
	rows, err := s.repo.RemoveUsuario(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	s.log.Info("removed usuario", slog.Int("id", id))
	return nil
}

// CountResidentes возвращает количество резидентов для административной сводки.
func (s *UsuarioService) CountResidentes(ctx context.Context, principal models.Principal) (int, error) {
	const op = "services.usuario.CountResidentes"
	if !principal.IsAdmin() {
		return 0, ErrPermissionDenied
	}
	count, err := s.repo.CountResidentes(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// EnsureBootstrapAdmin создаёт административную учётную запись при старте,
// если пользователь с таким username ещё не существует. Пустой пароль
// отключает bootstrap.
func (s *UsuarioService) EnsureBootstrapAdmin(ctx context.Context, username, email, rawPassword string) error {
	const op = "services.usuario.EnsureBootstrapAdmin"
	if rawPassword == "" {
		return nil
	}
	_, err := s.repo.GetUsuarioByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.repo.CreateUsuario(ctx, models.User{
		Username:     username,
		Email:        email,
		Rol:          models.RolAdmin,
		PasswordHash: hashed,
		FirstLogin:   true,
		IsActive:     true,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("bootstrap admin created", slog.Int("id", id), slog.String("username", username))
	return nil
}
