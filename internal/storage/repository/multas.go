package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/comunidadapp/multas-backend/internal/models"
)

// Разрешённые поля сортировки списка штрафов. Любое другое значение
// параметра ordering отбрасывается в пользу сортировки по умолчанию.
var multaOrderings = map[string]string{
	"fecha_creacion": "m.fecha_creacion ASC, m.id ASC",
	"monto":          "m.monto ASC, m.id ASC",
	"estado":         "m.estado ASC, m.id ASC",
}

var multaOrderingsDesc = map[string]string{
	"fecha_creacion": "m.fecha_creacion DESC, m.id DESC",
	"monto":          "m.monto DESC, m.id DESC",
	"estado":         "m.estado DESC, m.id DESC",
}

const multaColumns = `m.id, m.usuario_id, TRIM(u.first_name || ' ' || u.last_name),
			      m.motivo, m.descripcion, m.monto, m.fecha_creacion, m.fecha_pago, m.estado`

func scanMulta(row interface{ Scan(...any) error }) (*models.Multa, error) {
	m := &models.Multa{}
	var descripcion sql.NullString
	var fechaPago sql.NullTime
	if err := row.Scan(&m.ID, &m.UsuarioID, &m.UsuarioNombre, &m.Motivo, &descripcion,
		&m.Monto, &m.FechaCreacion, &fechaPago, &m.Estado); err != nil {
		return nil, err
	}
	if descripcion.Valid {
		m.Descripcion = &descripcion.String
	}
	if fechaPago.Valid {
		m.FechaPago = &fechaPago.Time
	}
	return m, nil
}

// CreateMulta вставляет новую запись штрафа и возвращает её ID.
// Дата создания назначается базой данных.
func (s *Storage) CreateMulta(ctx context.Context, multa models.Multa) (int, error) {
	const op = "storage.CreateMulta"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO multas (usuario_id, motivo, descripcion, monto, fecha_pago, estado)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		multa.UsuarioID, multa.Motivo, multa.Descripcion, multa.Monto,
		multa.FechaPago, multa.Estado).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetMulta возвращает штраф по его ID вместе с именем владельца.
func (s *Storage) GetMulta(ctx context.Context, id int) (*models.Multa, error) {
	const op = "storage.GetMulta"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + multaColumns + `
			  FROM multas m
			  JOIN usuarios u ON u.id = m.usuario_id
			  WHERE m.id = $1`
	m, err := scanMulta(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// ListMultas возвращает список штрафов по фильтру.
// Ограничение по владельцу (filter.OwnerID) добавляется первым условием,
// остальные фильтры лишь сужают полученный набор.
func (s *Storage) ListMultas(ctx context.Context, filter models.MultaFilter) ([]*models.Multa, error) {
	const op = "storage.ListMultas"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OwnerID != nil {
		conditions = append(conditions, "m.usuario_id = "+arg(*filter.OwnerID))
	}
	if filter.Estado != nil {
		conditions = append(conditions, "m.estado = "+arg(*filter.Estado))
	}
	if filter.UsuarioID != nil {
		conditions = append(conditions, "m.usuario_id = "+arg(*filter.UsuarioID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conditions = append(conditions, fmt.Sprintf(
			`(m.motivo ILIKE %[1]s OR m.descripcion ILIKE %[1]s OR u.username ILIKE %[1]s
			  OR u.first_name ILIKE %[1]s OR u.last_name ILIKE %[1]s)`, p))
	}

	query := `SELECT ` + multaColumns + `
			  FROM multas m
			  JOIN usuarios u ON u.id = m.usuario_id`
	if len(conditions) > 0 {
		query += "\n WHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n ORDER BY " + orderingClause(filter.Ordering)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Multa
	for rows.Next() {
		m, err := scanMulta(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func orderingClause(ordering string) string {
	if field, ok := multaOrderings[ordering]; ok {
		return field
	}
	if field, ok := multaOrderingsDesc[strings.TrimPrefix(ordering, "-")]; ok && strings.HasPrefix(ordering, "-") {
		return field
	}
	return multaOrderingsDesc["fecha_creacion"]
}

// UpdateMulta обновляет редактируемые поля штрафа и возвращает количество
// изменённых строк. Условие estado = 'pendiente' защищает оплаченные
// записи от изменения на уровне записи в базу.
func (s *Storage) UpdateMulta(ctx context.Context, multa *models.Multa) (int64, error) {
	const op = "storage.UpdateMulta"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE multas
			  SET usuario_id = $1, motivo = $2, descripcion = $3, monto = $4,
			      fecha_pago = $5, estado = $6
			  WHERE id = $7 AND estado = 'pendiente'`
	result, err := s.DB.ExecContext(ctx, query,
		multa.UsuarioID, multa.Motivo, multa.Descripcion, multa.Monto,
		multa.FechaPago, multa.Estado, multa.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// MarcarPagada атомарно переводит штраф в состояние pagado и назначает
// дату оплаты. Условие estado = 'pendiente' сериализует конкурентные
// вызовы: успешен только первый, остальные получают 0 строк.
func (s *Storage) MarcarPagada(ctx context.Context, id int) (int64, error) {
	const op = "storage.MarcarPagada"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE multas
			  SET estado = 'pagado', fecha_pago = CURRENT_DATE
			  WHERE id = $1 AND estado = 'pendiente'`
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

// RemoveMulta удаляет штраф по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveMulta(ctx context.Context, id int) (int64, error) {
	const op = "storage.RemoveMulta"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM multas WHERE id = $1`
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

// CountEstadisticas возвращает сводку по журналу штрафов.
// COALESCE гарантирует нули вместо NULL на пустом журнале.
func (s *Storage) CountEstadisticas(ctx context.Context) (models.EstadisticasMultas, error) {
	const op = "storage.CountEstadisticas"
	select {
	case <-ctx.Done():
		return models.EstadisticasMultas{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var stats models.EstadisticasMultas
	query := `SELECT COUNT(*),
			      COUNT(*) FILTER (WHERE estado = 'pendiente'),
			      COUNT(*) FILTER (WHERE estado = 'pagado'),
			      COALESCE(SUM(monto) FILTER (WHERE estado = 'pendiente'), 0),
			      COALESCE(SUM(monto) FILTER (WHERE estado = 'pagado'), 0)
			  FROM multas`
	if err := s.DB.QueryRowContext(ctx, query).Scan(&stats.TotalMultas, &stats.MultasPendientes,
		&stats.MultasPagadas, &stats.MontoPendiente, &stats.MontoPagado); err != nil {
		return models.EstadisticasMultas{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// CountMultasPendientesByUsuario возвращает число неоплаченных штрафов пользователя.
func (s *Storage) CountMultasPendientesByUsuario(ctx context.Context, usuarioID int) (int, error) {
	const op = "storage.CountMultasPendientesByUsuario"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM multas WHERE usuario_id = $1 AND estado = 'pendiente'`
	if err := s.DB.QueryRowContext(ctx, query, usuarioID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
