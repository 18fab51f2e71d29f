package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/comunidadapp/multas-backend/internal/models"
)

const usuarioColumns = `id, username, email, password_hash, first_name, last_name,
			      numero_residencia, telefono, rol, first_login, is_active`

func scanUsuario(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var numeroResidencia, telefono sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName,
		&u.LastName, &numeroResidencia, &telefono, &u.Rol, &u.FirstLogin, &u.IsActive); err != nil {
		return nil, err
	}
	if numeroResidencia.Valid {
		u.NumeroResidencia = &numeroResidencia.String
	}
	if telefono.Valid {
		u.Telefono = &telefono.String
	}
	return u, nil
}

// CreateUsuario сохраняет нового пользователя и возвращает его ID.
func (s *Storage) CreateUsuario(ctx context.Context, user models.User) (int, error) {
	const op = "storage.CreateUsuario"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int
	query := `INSERT INTO usuarios (username, email, password_hash, first_name, last_name,
			      numero_residencia, telefono, rol, first_login, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.NumeroResidencia, user.Telefono, user.Rol, user.FirstLogin,
		user.IsActive).Scan(&newID); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrUsernameExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUsuarioByUsername возвращает пользователя по его username.
func (s *Storage) GetUsuarioByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUsuarioByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + usuarioColumns + `
			  FROM usuarios
			  WHERE username = $1`
	u, err := scanUsuario(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUsuario возвращает пользователя по его ID.
func (s *Storage) GetUsuario(ctx context.Context, id int) (*models.User, error) {
	const op = "storage.GetUsuario"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + usuarioColumns + `
			  FROM usuarios
			  WHERE id = $1`
	u, err := scanUsuario(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsuarios возвращает всех пользователей в порядке их ID.
func (s *Storage) ListUsuarios(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsuarios"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + usuarioColumns + `
			  FROM usuarios
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateUsuario сохраняет изменённые поля пользователя и возвращает
// количество затронутых строк. Хэш пароля и флаг первого входа этим
// методом не изменяются.
func (s *Storage) UpdateUsuario(ctx context.Context, user *models.User) (int64, error) {
	const op = "storage.UpdateUsuario"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usuarios
			  SET email = $1, first_name = $2, last_name = $3, numero_residencia = $4,
			      telefono = $5, rol = $6, is_active = $7
			  WHERE id = $8`
	result, err := s.DB.ExecContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.NumeroResidencia,
		user.Telefono, user.Rol, user.IsActive, user.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// UpdatePasswordHash заменяет хэш пароля пользователя.
func (s *Storage) UpdatePasswordHash(ctx context.Context, id int, passwordHash string) (int64, error) {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usuarios SET password_hash = $1 WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// CompleteFirstLogin атомарно сохраняет новый хэш пароля и снимает флаг
// первого входа. Условие first_login = TRUE гарантирует, что переход
// выполняется не более одного раза: повторный вызов вернёт 0 строк.
func (s *Storage) CompleteFirstLogin(ctx context.Context, id int, passwordHash string) (int64, error) {
	const op = "storage.CompleteFirstLogin"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usuarios
			  SET password_hash = $1, first_login = FALSE
			  WHERE id = $2 AND first_login = TRUE`
	result, err := s.DB.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// ResetFirstLogin возвращает пользователя в состояние обязательной смены
// пароля (административный сброс) с новым временным паролем.
func (s *Storage) ResetFirstLogin(ctx context.Context, id int, passwordHash string) (int64, error) {
	const op = "storage.ResetFirstLogin"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usuarios
			  SET password_hash = $1, first_login = TRUE
			  WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// RemoveUsuario удаляет пользователя по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveUsuario(ctx context.Context, id int) (int64, error) {
	const op = "storage.RemoveUsuario"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM usuarios WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// CountResidentes возвращает количество пользователей с ролью residente.
func (s *Storage) CountResidentes(ctx context.Context) (int, error) {
	const op = "storage.CountResidentes"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM usuarios WHERE rol = $1`
	if err := s.DB.QueryRowContext(ctx, query, models.RolResidente).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
