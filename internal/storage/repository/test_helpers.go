package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/comunidadapp/multas-backend/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUsuario создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUsuario(t *testing.T, username, rol string, firstLogin bool) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO usuarios
		(username, email, password_hash, first_name, last_name, numero_residencia, rol, first_login)
		VALUES ($1, $2, 'hashedpassword', 'Test', 'User', 'A-1', $3, $4)
		RETURNING id`,
		username, username+"@example.com", rol, firstLogin).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateMulta создает тестовый штраф и возвращает его ID
func (f *TestDataFactory) CreateMulta(t *testing.T, usuarioID int, motivo string, monto int64, estado models.Estado) int {
	t.Helper()
	var id int
	var fechaPago any
	if estado == models.EstadoPagado {
		fechaPago = time.Now()
	}
	err := f.storage.DB.QueryRow(`INSERT INTO multas
		(usuario_id, motivo, monto, estado, fecha_pago)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		usuarioID, motivo, monto, estado, fechaPago).Scan(&id)
	require.NoError(t, err)
	return id
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	storage, err := New(connStr)
	require.NoError(t, err, "failed to create storage")

	// Схема повторяет migrations/0001_init.up.sql
	_, err = storage.DB.Exec(`
		CREATE TABLE usuarios (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(150) NOT NULL DEFAULT '',
			last_name VARCHAR(150) NOT NULL DEFAULT '',
			numero_residencia VARCHAR(20),
			telefono VARCHAR(20),
			rol VARCHAR(20) NOT NULL DEFAULT 'residente' CHECK (rol IN ('admin', 'residente')),
			first_login BOOLEAN NOT NULL DEFAULT TRUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE multas (
			id SERIAL PRIMARY KEY,
			usuario_id INTEGER NOT NULL REFERENCES usuarios(id) ON DELETE CASCADE,
			motivo VARCHAR(255) NOT NULL,
			descripcion TEXT,
			monto BIGINT NOT NULL CHECK (monto >= 0),
			fecha_creacion DATE NOT NULL DEFAULT CURRENT_DATE,
			fecha_pago DATE,
			estado VARCHAR(20) NOT NULL DEFAULT 'pendiente' CHECK (estado IN ('pendiente', 'pagado')),
			CHECK ((estado = 'pagado') = (fecha_pago IS NOT NULL))
		);

		CREATE INDEX idx_multas_usuario_id ON multas(usuario_id);
		CREATE INDEX idx_multas_estado ON multas(estado);
	`)
	require.NoError(t, err, "failed to create tables")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = container.Terminate(ctx)
	}

	return storage, cleanup
}
