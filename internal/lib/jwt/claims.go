// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// Claims расширяет стандартные claims JWT данными пользователя: username, роль,
// признак первого входа и отображаемое имя. Каждый токен помечен типом
// (access или refresh), чтобы refresh-токен нельзя было использовать для доступа.
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Типы выпускаемых токенов.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims описывает пользовательские данные, хранящиеся в JWT.
// Набор полей повторяет сводку пользователя, чтобы обработчики могли
// авторизовать запрос без обращения к базе данных.
type Claims struct {
	Username             string `json:"username"`        // Имя пользователя
	Rol                  string `json:"rol"`             // Роль: admin или residente
	FirstLogin           bool   `json:"first_login"`     // Требуется ли смена пароля при первом входе
	NombreCompleto       string `json:"nombre_completo"` // Отображаемое имя (имя + фамилия)
	TokenType            string `json:"token_type"`      // access или refresh
	jwt.RegisteredClaims        // Стандартные claims (Subject = ID пользователя, ExpiresAt и пр.)
}

// TokenPair содержит пару токенов, выдаваемую при входе и обновлении.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
