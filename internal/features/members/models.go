// Package members ведёт ростер участников чата (таблица users).
// Ростер - снимок текущих участников: по нему ограничивается лидерборд
// и ищутся пользователи по @username.
package members

import "time"

// Member - участник чата. UserID хранится строкой, как ключ леджера.
type Member struct {
	UserID    string    `db:"userid"`
	Username  string    `db:"username"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	JoinedAt  time.Time `db:"joined_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName возвращает @username, иначе имя + фамилию.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}
