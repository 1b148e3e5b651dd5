package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petermazzocco/tile-studio-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUserNotFound = errors.New("user not found")

// StorageError wraps any failure talking to the database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Open connects to postgres and returns the shared connection pool.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return db, nil
}

// UserStore reads and writes rows of the users table.
type UserStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

func (s *UserStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.User{}); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	return nil
}

const (
	selectUserByEmail = `SELECT id, email, password, created_at FROM users WHERE email = ? LIMIT 1`
	selectUserByID    = `SELECT id, email, password, created_at FROM users WHERE id = ? LIMIT 1`
	insertUser        = `INSERT INTO users (id, email, password, created_at) VALUES (?, ?, ?, ?)`
)

// FindByEmail returns ErrUserNotFound when no row matches. Emails are compared case-sensitively.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, selectUserByEmail, email)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, selectUserByID, id)
}

func (s *UserStore) findOne(ctx context.Context, query, arg string) (*models.User, error) {
	var u models.User
	res := s.db.WithContext(ctx).Raw(query, arg).Scan(&u)
	if res.Error != nil {
		return nil, &StorageError{Op: "find user", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Create inserts a new user. It does not check for duplicates; callers do that
// with FindByEmail first, and a concurrent insert surfaces as a StorageError.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Exec(insertUser, u.ID, u.Email, u.PasswordHash, u.CreatedAt).Error; err != nil {
		return nil, &StorageError{Op: "insert user", Err: err}
	}
	return u, nil
}
