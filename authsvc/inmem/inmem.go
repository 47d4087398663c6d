package inmem

import (
	"sync"

	"github.com/todoapp/todokit/authsvc"
)

type userRepository struct {
	mtx    sync.RWMutex
	nextID uint64
	users  map[uint64]authsvc.User
}

// NewUserRepository returns a UserRepository backed by process memory.
func NewUserRepository() authsvc.UserRepository {
	return &userRepository{users: make(map[uint64]authsvc.User)}
}

func (r *userRepository) ExistsByUsername(username string) (bool, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	_, ok := r.find(username)
	return ok, nil
}

func (r *userRepository) FindByUsername(username string) (authsvc.User, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	u, ok := r.find(username)
	if !ok {
		return authsvc.User{}, authsvc.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepository) Save(user authsvc.User) (authsvc.User, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if existing, ok := r.find(user.Username); ok && existing.ID != user.ID {
		return authsvc.User{}, authsvc.ErrUsernameTaken
	}
	if user.ID == 0 {
		r.nextID++
		user.ID = r.nextID
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *userRepository) find(username string) (authsvc.User, bool) {
	for _, u := range r.users {
		if u.Username == username {
			return u, true
		}
	}
	return authsvc.User{}, false
}
