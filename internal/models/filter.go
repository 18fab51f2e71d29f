package models

// MultaFilter представляет параметры фильтрации списка штрафов,
// передаваемые в слой доступа к данным. Ограничение по владельцу
// (OwnerID) накладывается ДО остальных фильтров: резидент не может
// расширить выборку подбором параметров запроса.
type MultaFilter struct {
	OwnerID   *int    // Принудительное ограничение по владельцу (резидент)
	Estado    *Estado // Фильтр по состоянию (опционально)
	UsuarioID *int    // Фильтр по владельцу, доступный администратору
	Search    string  // Поиск по motivo, descripcion и имени владельца
	Ordering  string  // fecha_creacion | monto | estado, префикс '-' — по убыванию
}
