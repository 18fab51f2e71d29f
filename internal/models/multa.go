package models

import (
	"errors"
	"time"
)

// Estado определяет состояние штрафа.
type Estado string

// Жизненный цикл штрафа: единственный переход pendiente -> pagado.
const (
	EstadoPendiente Estado = "pendiente"
	EstadoPagado    Estado = "pagado"
)

// ErrMultaYaPagada возвращается при попытке повторно оплатить штраф.
var ErrMultaYaPagada = errors.New("multa is already paid")

// Valid сообщает, является ли значение допустимым состоянием.
func (e Estado) Valid() bool {
	return e == EstadoPendiente || e == EstadoPagado
}

// MarcarPagada выполняет переход pendiente -> pagado.
// Из состояния pagado переходов нет: повторный вызов возвращает ErrMultaYaPagada.
func (e Estado) MarcarPagada() (Estado, error) {
	if e == EstadoPagado {
		return e, ErrMultaYaPagada
	}
	return EstadoPagado, nil
}

// Multa представляет штраф, назначенный резиденту.
// FechaCreacion назначается сервером один раз; FechaPago заполняется
// строго одновременно с переходом в состояние pagado.
type Multa struct {
	ID            int        `json:"id"`
	UsuarioID     int        `json:"usuario"`
	UsuarioNombre string     `json:"usuario_nombre"`
	Motivo        string     `json:"motivo"`
	Descripcion   *string    `json:"descripcion"`
	Monto         int64      `json:"monto"`
	FechaCreacion time.Time  `json:"fecha_creacion"`
	FechaPago     *time.Time `json:"fecha_pago"`
	Estado        Estado     `json:"estado"`
}

// UsuarioResumen — краткая сводка о владельце штрафа для детального представления.
type UsuarioResumen struct {
	ID               int     `json:"id"`
	Username         string  `json:"username"`
	Nombre           string  `json:"nombre"`
	NumeroResidencia *string `json:"numero_residencia"`
	Rol              Rol     `json:"rol"`
}

// MultaDetalle — детальное представление штрафа с данными владельца.
type MultaDetalle struct {
	Multa
	UsuarioDetalle UsuarioResumen `json:"usuario_detalle"`
}

// DummyMulta используется для приёма данных штрафа из JSON-запроса
// до их валидации и преобразования в Multa.
type DummyMulta struct {
	UsuarioID   int    `json:"usuario" validate:"required"`                          // ID резидента-владельца
	Motivo      string `json:"motivo" validate:"required,max=255"`                   // Краткая причина
	Descripcion string `json:"descripcion" validate:"omitempty"`                     // Развёрнутое описание (опционально)
	Monto       int64  `json:"monto" validate:"gte=0"`                               // Сумма, целое неотрицательное
	Estado      string `json:"estado" validate:"omitempty,oneof=pendiente pagado"`   // Только при обновлении админом
	FechaPago   string `json:"fecha_pago" validate:"omitempty"`                      // Дата оплаты в формате 2006-01-02 (опционально)
}

// EstadisticasMultas — сводка по журналу штрафов для администратора.
// Суммы равны нулю, а не null, если подходящих записей нет.
type EstadisticasMultas struct {
	TotalMultas      int   `json:"total_multas"`
	MultasPendientes int   `json:"multas_pendientes"`
	MultasPagadas    int   `json:"multas_pagadas"`
	MontoPendiente   int64 `json:"monto_pendiente"`
	MontoPagado      int64 `json:"monto_pagado"`
}
