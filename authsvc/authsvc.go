package authsvc

import "errors"

type User struct {
	ID        uint64  `gorm:"primaryKey"`
	Username  string  `gorm:"uniqueIndex;not null"`
	Password  string  `gorm:"not null"`
	AvatarURL *string `gorm:"column:avatar_url"`
}

// UserRepository persists users and enforces nothing beyond what the
// underlying store does; username uniqueness is checked by callers.
type UserRepository interface {
	ExistsByUsername(username string) (bool, error)
	FindByUsername(username string) (User, error)
	Save(user User) (User, error)
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type Profile struct {
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// ProfilePatch is a partial update: nil fields are left unchanged.
type ProfilePatch struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func NewProfile(u User) Profile {
	return Profile{Username: u.Username, AvatarURL: u.AvatarURL}
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
