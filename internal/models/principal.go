package models

// Principal — аутентифицированная личность запроса: пользователь и его роль.
// Формируется один раз в JWT middleware и передаётся в сервисы явным
// параметром, чтобы правила авторизации не расползались по сравнению строк.
type Principal struct {
	UserID         int
	Username       string
	Rol            Rol
	FirstLogin     bool
	NombreCompleto string
}

// IsAdmin сообщает, имеет ли принципал административную роль.
func (p Principal) IsAdmin() bool {
	return p.Rol == RolAdmin
}

// CanViewAll сообщает, видит ли принципал чужие записи.
// Резидент всегда ограничен собственными записями.
func (p Principal) CanViewAll() bool {
	return p.Rol == RolAdmin
}

// CanMutate сообщает, может ли принципал создавать и изменять ресурсы.
// Запись доступна только администраторам; единственное исключение —
// оплата собственного штрафа резидентом, проверяемое отдельно через Owns.
func (p Principal) CanMutate() bool {
	return p.Rol == RolAdmin
}

// Owns сообщает, принадлежит ли запись с данным владельцем принципалу.
func (p Principal) Owns(userID int) bool {
	return p.UserID == userID
}
