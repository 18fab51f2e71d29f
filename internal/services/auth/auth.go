// Package services содержит логику бизнес-уровня для аутентификации,
// выпуска токенов и управления паролями.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/comunidadapp/multas-backend/internal/lib/jwt"
	"github.com/comunidadapp/multas-backend/internal/lib/password"
	"github.com/comunidadapp/multas-backend/internal/models"
)

// Ошибки уровня аутентификации.
var (
	// ErrInvalidCredentials — неизвестный username, неверный пароль или
	// деактивированная учётная запись. Причина намеренно не различается.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUsuarioByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUsuarioByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUsuario возвращает пользователя по ID.
	GetUsuario(ctx context.Context, id int) (*models.User, error)

	// UpdatePasswordHash заменяет хэш пароля.
	UpdatePasswordHash(ctx context.Context, id int, passwordHash string) (int64, error)

	// CompleteFirstLogin атомарно сохраняет хэш и снимает флаг первого входа.
	// Возвращает 0 строк, если флаг уже снят.
	CompleteFirstLogin(ctx context.Context, id int, passwordHash string) (int64, error)
}

// AuthService отвечает за вход, обновление токенов и смену пароля.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	policy   password.Policy
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, policy password.Policy) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		policy:   policy,
	}
}

// Login проверяет учётные данные и выпускает пару токенов.
// Любая причина отказа сворачивается в ErrInvalidCredentials, без побочных
// эффектов на записи пользователя.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (*models.User, jwt.TokenPair, error) {
	const op = "services.auth.Login"
	user, err := s.users.GetUsuarioByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jwt.TokenPair{}, ErrInvalidCredentials
		}
		return nil, jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return nil, jwt.TokenPair{}, ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, jwt.TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.jwtMaker.GeneratePair(user)
	if err != nil {
		return nil, jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, pair, nil
}

// Refresh выпускает новую пару токенов по refresh-токену.
// Claims берутся из актуального состояния записи, а не из старого токена,
// поэтому смена роли или флага первого входа попадает в новую пару.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error) {
	const op = "services.auth.Refresh"
	claims, err := s.jwtMaker.ParseRefreshToken(refreshToken)
	if err != nil {
		return jwt.TokenPair{}, ErrInvalidCredentials
	}
	id, err := claims.UserID()
	if err != nil {
		return jwt.TokenPair{}, ErrInvalidCredentials
	}
	user, err := s.users.GetUsuario(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jwt.TokenPair{}, ErrInvalidCredentials
		}
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return jwt.TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.jwtMaker.GeneratePair(user)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// CompleteFirstLogin завершает обязательную смену пароля при первом входе.
// Переход одноразовый: повторный вызов возвращает models.ErrNotFirstLogin.
// Флаг проверяется по текущему состоянию записи, а не по claims токена.
func (s *AuthService) CompleteFirstLogin(ctx context.Context, principal models.Principal, newPassword string) (jwt.TokenPair, error) {
	const op = "services.auth.CompleteFirstLogin"
	user, err := s.users.GetUsuario(ctx, principal.UserID)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := user.PasswordState().CompleteFirstLogin(); err != nil {
		return jwt.TokenPair{}, err
	}
	if err := s.policy.Validate(user.Username, newPassword); err != nil {
		return jwt.TokenPair{}, err
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.users.CompleteFirstLogin(ctx, user.ID, hashed)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		// Конкурентный вызов успел снять флаг первым.
		return jwt.TokenPair{}, models.ErrNotFirstLogin
	}
	user.FirstLogin = false
	pair, err := s.jwtMaker.GeneratePair(user)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// ChangePassword выполняет обычную смену пароля с проверкой старого.
func (s *AuthService) ChangePassword(ctx context.Context, principal models.Principal, oldPassword, newPassword string) (jwt.TokenPair, error) {
	const op = "services.auth.ChangePassword"
	user, err := s.users.GetUsuario(ctx, principal.UserID)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, oldPassword); err != nil {
		return jwt.TokenPair{}, ErrInvalidCredentials
	}
	if err := s.policy.Validate(user.Username, newPassword); err != nil {
		return jwt.TokenPair{}, err
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.users.UpdatePasswordHash(ctx, user.ID, hashed); err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	pair, err := s.jwtMaker.GeneratePair(user)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}
