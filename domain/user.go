package domain

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is read-mostly from the board's perspective; tasks and activity
// entries reference it, nothing mutates it.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// UserSummary is the display projection embedded into task and activity
// views in place of a bare user ID.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Summary returns the display projection of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
