package gorm

import (
	"errors"

	"github.com/jackc/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/todoapp/todokit/authsvc"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) authsvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	result := u.db.Model(&authsvc.User{}).Where("username = ?", username).Count(&count)

	return count > 0, result.Error
}

func (u *userRepository) FindByUsername(username string) (authsvc.User, error) {
	var user authsvc.User
	result := u.db.Where("username = ?", username).First(&user)
	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return authsvc.User{}, authsvc.ErrUserNotFound
	}

	return user, result.Error
}

// Save inserts users without an ID and overwrites every column otherwise.
// A username held by another row is ErrUsernameTaken.
func (u *userRepository) Save(user authsvc.User) (authsvc.User, error) {
	result := u.db.Save(&user)
	if isUniqueViolation(result.Error) {
		return authsvc.User{}, authsvc.ErrUsernameTaken
	}

	return user, result.Error
}

// pgUniqueViolation is the SQLSTATE postgres reports for unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
