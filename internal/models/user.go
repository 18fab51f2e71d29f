// Package models содержит доменные модели системы: пользователей (администраторы
// и резиденты), многоквартирные штрафы (multas) и вспомогательные типы для
// фильтрации и авторизации.
package models

import (
	"errors"
	"strings"
)

// Rol определяет роль пользователя в системе.
type Rol string

// Допустимые роли.
const (
	RolAdmin     Rol = "admin"
	RolResidente Rol = "residente"
)

// Valid сообщает, является ли значение допустимой ролью.
func (r Rol) Valid() bool {
	return r == RolAdmin || r == RolResidente
}

// PasswordState описывает состояние обязательной смены пароля.
// Новый пользователь создаётся в состоянии must_change и переходит в normal
// ровно один раз — через завершение первого входа. Обратный переход доступен
// только административным сбросом.
type PasswordState string

// Состояния смены пароля.
const (
	PasswordMustChange PasswordState = "must_change"
	PasswordNormal     PasswordState = "normal"
)

// ErrNotFirstLogin возвращается при попытке завершить первый вход повторно.
var ErrNotFirstLogin = errors.New("not first login")

// CompleteFirstLogin выполняет единственный разрешённый переход must_change -> normal.
// Из состояния normal перехода нет: повторный вызов возвращает ErrNotFirstLogin.
func (s PasswordState) CompleteFirstLogin() (PasswordState, error) {
	if s != PasswordMustChange {
		return s, ErrNotFirstLogin
	}
	return PasswordNormal, nil
}

// User представляет учётную запись пользователя системы.
// Хэш пароля никогда не сериализуется в ответах.
type User struct {
	ID               int     `json:"id"`
	Username         string  `json:"username"`
	Email            string  `json:"email"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	NumeroResidencia *string `json:"numero_residencia"`
	Telefono         *string `json:"telefono"`
	Rol              Rol     `json:"rol"`
	FirstLogin       bool    `json:"first_login"`
	IsActive         bool    `json:"is_active"`
	PasswordHash     string  `json:"-"`
}

// NombreCompleto возвращает отображаемое имя пользователя.
func (u *User) NombreCompleto() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PasswordState возвращает состояние смены пароля, соответствующее флагу FirstLogin.
func (u *User) PasswordState() PasswordState {
	if u.FirstLogin {
		return PasswordMustChange
	}
	return PasswordNormal
}

// DummyUsuario используется для приёма данных пользователя из JSON-запроса
// до их валидации и преобразования в User.
type DummyUsuario struct {
	Username         string `json:"username" validate:"required,min=3,max=150"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password,omitempty" validate:"omitempty,min=6"` // Временный пароль, только при создании
	FirstName        string `json:"first_name" validate:"omitempty,max=150"`
	LastName         string `json:"last_name" validate:"omitempty,max=150"`
	NumeroResidencia string `json:"numero_residencia" validate:"omitempty,max=20"`
	Telefono         string `json:"telefono" validate:"omitempty,max=20"`
	Rol              string `json:"rol" validate:"omitempty,oneof=admin residente"`
}

// UsuarioPatch описывает частичное обновление пользователя (PUT/PATCH).
// nil-поле означает «не менять». Флаг FirstLogin здесь намеренно отсутствует:
// он сбрасывается только через первый вход либо административный сброс.
type UsuarioPatch struct {
	Email            *string `json:"email" validate:"omitempty,email"`
	FirstName        *string `json:"first_name" validate:"omitempty,max=150"`
	LastName         *string `json:"last_name" validate:"omitempty,max=150"`
	NumeroResidencia *string `json:"numero_residencia" validate:"omitempty,max=20"`
	Telefono         *string `json:"telefono" validate:"omitempty,max=20"`
	Rol              *string `json:"rol" validate:"omitempty,oneof=admin residente"`
	IsActive         *bool   `json:"is_active"`
}
