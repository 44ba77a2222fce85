package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	userDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/user"
)

const (
	KeyAuthToken    = "auth_token"
	KeyUser         = "user"
	KeyProfileImage = "profile_image"
)

// Credential is one persisted key/value pair.
type Credential struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

// Store keeps the cached session in a local sqlite file.
type Store struct {
	db *gorm.DB
}

// New opens (and if needed creates) the sqlite file at path. An empty path
// defaults to ~/.project-console/session.db.
func New(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".project-console", "session.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, fmt.Errorf("migrate session store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(token string, u *userDatamodel.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}

	rows := []Credential{
		{Key: KeyAuthToken, Value: token, UpdatedAt: time.Now()},
		{Key: KeyUser, Value: string(raw), UpdatedAt: time.Now()},
	}
	if u != nil && u.ProfileImage != "" {
		// Mirrored separately so the avatar renders without decoding
		// the whole user blob.
		rows = append(rows, Credential{Key: KeyProfileImage, Value: u.ProfileImage, UpdatedAt: time.Now()})
	}

	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (s *Store) Load() (string, *userDatamodel.User, error) {
	token, err := s.get(KeyAuthToken)
	if err != nil {
		return "", nil, err
	}
	rawUser, err := s.get(KeyUser)
	if err != nil {
		return "", nil, err
	}
	if token == "" || rawUser == "" {
		return "", nil, nil
	}

	var u userDatamodel.User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		// A corrupt cache behaves like no cache at all.
		return "", nil, nil
	}
	return token, &u, nil
}

func (s *Store) Clear() error {
	return s.db.Where("1 = 1").Delete(&Credential{}).Error
}

func (s *Store) get(key string) (string, error) {
	var row Credential
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}
