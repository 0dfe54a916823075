package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("already exists")
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{TranslateError: true}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Session{}, &Prediction{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser inserts a new account. Username and email must be unique.
func (d *Database) CreateUser(user *User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	user.Username = strings.TrimSpace(user.Username)
	user.Email = normalizeEmail(user.Email)
	if user.Username == "" || user.Email == "" || user.PasswordHash == "" {
		return errors.New("username, email and password are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Create(user).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindUserByEmail returns the account registered with email.
func (d *Database) FindUserByEmail(email string) (*User, error) {
	var user User
	if err := d.gorm.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByID returns the account with id.
func (d *Database) FindUserByID(id uint) (*User, error) {
	var user User
	if err := d.gorm.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CreateSession stores a session token.
func (d *Database) CreateSession(session *Session) error {
	if session == nil || session.Token == "" {
		return errors.New("session token is required")
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(session).Error
}

// FindSession returns the session for token. Expired sessions count as missing.
func (d *Database) FindSession(token string, now time.Time) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var session Session
	if err := d.gorm.Where("token = ? AND expires_at > ?", token, now.UTC()).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// DeleteSession removes a session token.
func (d *Database) DeleteSession(token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Where("token = ?", token).Delete(&Session{}).Error
}

// PurgeExpiredSessions deletes sessions that expired before now and reports how many.
func (d *Database) PurgeExpiredSessions(now time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Where("expires_at <= ?", now.UTC()).Delete(&Session{})
	return res.RowsAffected, res.Error
}

// SavePrediction appends a prediction row.
func (d *Database) SavePrediction(p *Prediction) error {
	if p == nil {
		return errors.New("prediction is nil")
	}
	if p.UserID == 0 {
		return errors.New("prediction user is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(p).Error
}

// LatestPrediction returns the most recent prediction of userID.
func (d *Database) LatestPrediction(userID uint) (*Prediction, error) {
	var p Prediction
	if err := d.gorm.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListPredictions returns a newest-first page of userID's predictions and the total count.
func (d *Database) ListPredictions(userID uint, offset, limit int) ([]Prediction, int64, error) {
	var total int64
	if err := d.gorm.Model(&Prediction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 25
	}
	var rows []Prediction
	if err := d.gorm.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
