package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comunidadapp/multas-backend/internal/models"
)

func TestStorage_UsuarioLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("создание и чтение", func(t *testing.T) {
		residencia := "B-42"
		id, err := storage.CreateUsuario(ctx, models.User{
			Username:         "resident9",
			Email:            "resident9@example.com",
			FirstName:        "Luis",
			LastName:         "Pérez",
			NumeroResidencia: &residencia,
			Rol:              models.RolResidente,
			FirstLogin:       true,
			IsActive:         true,
			PasswordHash:     "hashedpassword",
		})
		require.NoError(t, err)
		require.NotZero(t, id)

		user, err := storage.GetUsuario(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "resident9", user.Username)
		assert.Equal(t, models.RolResidente, user.Rol)
		assert.True(t, user.FirstLogin)
		require.NotNil(t, user.NumeroResidencia)
		assert.Equal(t, "B-42", *user.NumeroResidencia)
		assert.Nil(t, user.Telefono)

		byName, err := storage.GetUsuarioByUsername(ctx, "resident9")
		require.NoError(t, err)
		assert.Equal(t, id, byName.ID)
	})

	t.Run("повторный username отклоняется", func(t *testing.T) {
		_, err := storage.CreateUsuario(ctx, models.User{
			Username:     "resident9",
			Email:        "otro@example.com",
			Rol:          models.RolResidente,
			FirstLogin:   true,
			IsActive:     true,
			PasswordHash: "hashedpassword",
		})
		assert.ErrorIs(t, err, ErrUsernameExists)
	})

	t.Run("отсутствующий пользователь", func(t *testing.T) {
		_, err := storage.GetUsuario(ctx, 99999)
		assert.ErrorIs(t, err, sql.ErrNoRows)

		_, err = storage.GetUsuarioByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestStorage_CompleteFirstLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	id := factory.CreateUsuario(t, "resident7", "residente", true)

	rows, err := storage.CompleteFirstLogin(ctx, id, "newhash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	user, err := storage.GetUsuario(ctx, id)
	require.NoError(t, err)
	assert.False(t, user.FirstLogin)
	assert.Equal(t, "newhash", user.PasswordHash)

	// Второй вызов не проходит: флаг уже снят.
	rows, err = storage.CompleteFirstLogin(ctx, id, "anotherhash")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	user, err = storage.GetUsuario(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "newhash", user.PasswordHash)
}

func TestStorage_ResetFirstLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	id := factory.CreateUsuario(t, "resident7", "residente", false)

	rows, err := storage.ResetFirstLogin(ctx, id, "temphash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	user, err := storage.GetUsuario(ctx, id)
	require.NoError(t, err)
	assert.True(t, user.FirstLogin)
	assert.Equal(t, "temphash", user.PasswordHash)

	// После сброса первый вход снова доступен.
	rows, err = storage.CompleteFirstLogin(ctx, id, "permanenthash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func TestStorage_UpdateAndRemoveUsuario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	id := factory.CreateUsuario(t, "resident7", "residente", true)

	t.Run("обновление не трогает пароль и флаг первого входа", func(t *testing.T) {
		user, err := storage.GetUsuario(ctx, id)
		require.NoError(t, err)

		user.Email = "updated@example.com"
		user.IsActive = false
		rows, err := storage.UpdateUsuario(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)

		updated, err := storage.GetUsuario(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "updated@example.com", updated.Email)
		assert.False(t, updated.IsActive)
		assert.True(t, updated.FirstLogin)
		assert.Equal(t, "hashedpassword", updated.PasswordHash)
	})

	t.Run("удаление каскадно убирает штрафы", func(t *testing.T) {
		multaID := factory.CreateMulta(t, id, "Ruido excesivo", 5000, models.EstadoPendiente)

		rows, err := storage.RemoveUsuario(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)

		_, err = storage.GetMulta(ctx, multaID)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestStorage_CountResidentes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	factory.CreateUsuario(t, "admin", "admin", false)
	factory.CreateUsuario(t, "ana", "residente", false)
	factory.CreateUsuario(t, "luis", "residente", true)

	count, err := storage.CountResidentes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
