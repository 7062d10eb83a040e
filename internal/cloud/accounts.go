package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("email and password are required")
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type account struct {
	User
	PasswordHash string `json:"passwordHash"`
}

// Accounts is a file-backed user registry standing in for an auth server.
type Accounts struct {
	mu   sync.Mutex
	path string
	cost int
}

func NewAccounts(dir string) (*Accounts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create accounts directory: %w", err)
	}
	return &Accounts{path: filepath.Join(dir, "users.json"), cost: bcrypt.DefaultCost}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Accounts) Signup(email, password, name string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrMissingFields
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accounts, err := a.load()
	if err != nil {
		return User{}, err
	}
	for _, acc := range accounts {
		if acc.Email == email {
			return User{}, ErrEmailExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user := User{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	accounts = append(accounts, account{User: user, PasswordHash: string(hash)})
	if err := a.save(accounts); err != nil {
		return User{}, err
	}
	return user, nil
}

func (a *Accounts) Login(email, password string) (User, error) {
	email = normalizeEmail(email)

	a.mu.Lock()
	defer a.mu.Unlock()

	accounts, err := a.load()
	if err != nil {
		return User{}, err
	}
	for _, acc := range accounts {
		if acc.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
			return User{}, ErrInvalidCredentials
		}
		return acc.User, nil
	}
	return User{}, ErrInvalidCredentials
}

func (a *Accounts) load() ([]account, error) {
	raw, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	var accounts []account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return accounts, nil
}

func (a *Accounts) save(accounts []account) error {
	raw, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	return writeFileAtomic(a.path, raw)
}
