package auth

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrUnknownUser  = errors.New("user not found")
	ErrBadPassword  = errors.New("incorrect password")
	ErrInvalidUser  = errors.New("invalid user")
	validRoles      = map[string]bool{"admin": true, "teacher": true, "viewer": true}
	defaultUserRole = "teacher"
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// UserInput is one row of a bulk upsert. Password is plaintext and optional for
// existing users.
type UserInput struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

type UserStore interface {
	Lookup(ctx context.Context, username string) (User, error)
	Get(ctx context.Context, id string) (User, error)
	List(ctx context.Context, role string) ([]User, error)
	Upsert(ctx context.Context, rows []UserInput) (inserted, updated int, err error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	// Seed writes u with an already hashed password, replacing any user with the same id.
	Seed(ctx context.Context, u User) error
}

// Authenticate checks username and password against the store.
func Authenticate(ctx context.Context, us UserStore, username, password string) (User, error) {
	u, err := us.Lookup(ctx, username)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadPassword
	}
	return u, nil
}

// ChangePassword verifies the old password of user id and stores a hash of the new one.
func ChangePassword(ctx context.Context, us UserStore, id, oldPass, newPass string) error {
	if newPass == "" {
		return errors.Join(ErrInvalidUser, errors.New("new password required"))
	}
	u, err := us.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPass)) != nil {
		return ErrBadPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPass), bcryptCost)
	if err != nil {
		return err
	}
	return us.SetPasswordHash(ctx, id, string(hash))
}

// EnsureAdmin creates the bootstrap admin, or resets its role and hash when it exists.
func EnsureAdmin(ctx context.Context, us UserStore, username, hash string) error {
	if username == "" || hash == "" {
		return nil
	}
	u, err := us.Lookup(ctx, username)
	switch {
	case errors.Is(err, ErrUnknownUser):
		u = User{ID: uuid.NewString(), Username: username}
	case err != nil:
		return err
	}
	u.Role, u.PasswordHash = "admin", hash
	return us.Seed(ctx, u)
}

func normalizeInput(r UserInput) (UserInput, string, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if r.Role == "" {
		r.Role = defaultUserRole
	}
	if r.Username == "" {
		return r, "", errors.Join(ErrInvalidUser, errors.New("username required"))
	}
	if !validRoles[r.Role] {
		return r, "", errors.Join(ErrInvalidUser, errors.New("invalid role: "+r.Role))
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var phash string
	if r.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcryptCost)
		if err != nil {
			return r, "", err
		}
		phash = string(b)
	}
	return r, phash, nil
}

// ---- SQL ----

type SQLUsers struct{ db *sql.DB }

func NewSQLUsers(db *sql.DB) *SQLUsers { return &SQLUsers{db: db} }

func (s *SQLUsers) Lookup(ctx context.Context, username string) (User, error) {
	return s.one(ctx, `SELECT id, username, role, password_hash FROM users WHERE username=$1`, username)
}

func (s *SQLUsers) Get(ctx context.Context, id string) (User, error) {
	return s.one(ctx, `SELECT id, username, role, password_hash FROM users WHERE id=$1`, id)
}

func (s *SQLUsers) one(ctx context.Context, q, arg string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnknownUser
	}
	return u, err
}

func (s *SQLUsers) List(ctx context.Context, role string) ([]User, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if role == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, username, role FROM users ORDER BY username`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, username, role FROM users WHERE role=$1 ORDER BY username`, role)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLUsers) Upsert(ctx context.Context, in []UserInput) (inserted, updated int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			inserted, updated = 0, 0
		} else {
			err = tx.Commit()
		}
	}()

	now := time.Now().Unix()
	for _, raw := range in {
		r, phash, nerr := normalizeInput(raw)
		if nerr != nil {
			return inserted, updated, nerr
		}
		var existingID string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 OR username=$2`, r.ID, r.Username).Scan(&existingID)
		switch {
		case err == nil:
			if phash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`,
					r.Username, r.Role, phash, existingID)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2 WHERE id=$3`,
					r.Username, r.Role, existingID)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		case errors.Is(err, sql.ErrNoRows):
			if phash == "" {
				err = errors.Join(ErrInvalidUser, errors.New("password required for new user: "+r.Username))
				return inserted, updated, err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
				r.ID, r.Username, phash, r.Role, now)
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return inserted, updated, nil
}

func (s *SQLUsers) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUnknownUser
	}
	return nil
}

func (s *SQLUsers) Seed(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`,
		u.Username, u.Role, u.PasswordHash, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Username, u.PasswordHash, u.Role, time.Now().Unix())
	return err
}

// ---- memory ----

type memoryUsers struct {
	mu   sync.RWMutex
	byID map[string]User
}

// NewMemoryUsers keeps accounts in process memory, for DB_DRIVER=memory.
func NewMemoryUsers() UserStore { return &memoryUsers{byID: map[string]User{}} }

func (m *memoryUsers) Lookup(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUnknownUser
}

func (m *memoryUsers) Get(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return u, nil
}

func (m *memoryUsers) List(_ context.Context, role string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []User{}
	for _, u := range m.byID {
		if role == "" || u.Role == role {
			u.PasswordHash = ""
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryUsers) Upsert(_ context.Context, in []UserInput) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := make(map[string]User, len(m.byID))
	for k, v := range m.byID {
		staged[k] = v
	}
	inserted, updated := 0, 0
	for _, raw := range in {
		r, phash, err := normalizeInput(raw)
		if err != nil {
			return 0, 0, err
		}
		existing, found := staged[r.ID]
		if !found {
			for _, u := range staged {
				if u.Username == r.Username {
					existing, found = u, true
					break
				}
			}
		}
		if found {
			existing.Username, existing.Role = r.Username, r.Role
			if phash != "" {
				existing.PasswordHash = phash
			}
			staged[existing.ID] = existing
			updated++
			continue
		}
		if phash == "" {
			return 0, 0, errors.Join(ErrInvalidUser, errors.New("password required for new user: "+r.Username))
		}
		staged[r.ID] = User{ID: r.ID, Username: r.Username, Role: r.Role, PasswordHash: phash}
		inserted++
	}
	m.byID = staged
	return inserted, updated, nil
}

func (m *memoryUsers) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUnknownUser
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

func (m *memoryUsers) Seed(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	return nil
}
