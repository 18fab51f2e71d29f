package password

import (
	"errors"
	"strings"
	"unicode"
)

// Ошибки нарушения политики сложности пароля.
// Текст каждой ошибки попадает в HTTP-ответ как описание поля new_password.
var (
	ErrTooShort          = errors.New("password is too short")
	ErrEntirelyNumeric   = errors.New("password cannot be entirely numeric")
	ErrSimilarToUsername = errors.New("password is too similar to username")
)

// Policy описывает настраиваемые требования к новому паролю.
// Политика применяется при первичной смене пароля и при обычной смене,
// но не при проверке существующих учётных данных.
type Policy struct {
	MinLength               int  `yaml:"min_length" env-default:"8"`
	RejectNumeric           bool `yaml:"reject_numeric" env-default:"true"`
	RejectSimilarToUsername bool `yaml:"reject_similar_to_username" env-default:"true"`
}

// DefaultPolicy возвращает политику с настройками по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:               8,
		RejectNumeric:           true,
		RejectSimilarToUsername: true,
	}
}

// Validate проверяет новый пароль по политике.
// Возвращает первую нарушенную норму либо nil.
func (p Policy) Validate(username, newPassword string) error {
	if len(newPassword) < p.MinLength {
		return ErrTooShort
	}
	if p.RejectNumeric && isNumeric(newPassword) {
		return ErrEntirelyNumeric
	}
	if p.RejectSimilarToUsername && username != "" {
		lower := strings.ToLower(newPassword)
		lowerUsername := strings.ToLower(username)
		if strings.Contains(lower, lowerUsername) || strings.Contains(lowerUsername, lower) {
			return ErrSimilarToUsername
		}
	}
	return nil
}

// IsPolicyViolation сообщает, является ли ошибка нарушением политики пароля.
// Такие ошибки — клиентские (HTTP 400), а не сбои сервера.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrTooShort) ||
		errors.Is(err, ErrEntirelyNumeric) ||
		errors.Is(err, ErrSimilarToUsername)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
