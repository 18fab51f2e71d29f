package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/comunidadapp/multas-backend/internal/models"
)

// ErrWrongTokenType возвращается, когда токен валиден, но имеет не тот тип
// (например, refresh-токен предъявлен как access).
var ErrWrongTokenType = errors.New("wrong token type")

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GeneratePair выпускает пару токенов (access + refresh) для пользователя.
	GeneratePair(u *models.User) (TokenPair, error)
	// ParseToken разбирает токен и возвращает его claims, если подпись и срок корректны.
	ParseToken(tokenStr string) (*Claims, error)
	// ParseAccessToken — как ParseToken, но дополнительно требует тип access.
	ParseAccessToken(tokenStr string) (*Claims, error)
	// ParseRefreshToken — как ParseToken, но дополнительно требует тип refresh.
	ParseRefreshToken(tokenStr string) (*Claims, error)
}

// MakerImpl реализует Maker на основе секретного ключа и двух TTL:
// короткого для access-токена и длинного для refresh-токена.
type MakerImpl struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewMaker создаёт новый экземпляр MakerImpl.
func NewMaker(secretKey string, accessTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GeneratePair выпускает access- и refresh-токены с одинаковыми данными
// пользователя. Claims снимаются с текущего состояния записи: изменение
// роли или флага первого входа попадёт в токены при следующем выпуске.
func (j *MakerImpl) GeneratePair(u *models.User) (TokenPair, error) {
	const op = "jwt.GeneratePair"
	access, err := j.generate(u, TokenTypeAccess, j.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := j.generate(u, TokenTypeRefresh, j.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (j *MakerImpl) generate(u *models.User, tokenType string, ttl time.Duration) (string, error) {
	claims := Claims{
		Username:       u.Username,
		Rol:            string(u.Rol),
		FirstLogin:     u.FirstLogin,
		NombreCompleto: u.NombreCompleto(),
		TokenType:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит JWT токен, проверяет его подпись и срок действия,
// возвращает Claims, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}

// ParseAccessToken разбирает токен и требует тип access.
func (j *MakerImpl) ParseAccessToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseAccessToken"
	claims, err := j.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}
	return claims, nil
}

// ParseRefreshToken разбирает токен и требует тип refresh.
func (j *MakerImpl) ParseRefreshToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseRefreshToken"
	claims, err := j.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}
	return claims, nil
}

// UserID возвращает числовой ID пользователя из Subject.
func (c *Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// Principal собирает принципала запроса из claims токена.
func (c *Claims) Principal() (models.Principal, error) {
	id, err := c.UserID()
	if err != nil {
		return models.Principal{}, fmt.Errorf("jwt.Principal: %w", err)
	}
	return models.Principal{
		UserID:         id,
		Username:       c.Username,
		Rol:            models.Rol(c.Rol),
		FirstLogin:     c.FirstLogin,
		NombreCompleto: c.NombreCompleto,
	}, nil
}
