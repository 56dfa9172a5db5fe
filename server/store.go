package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const uploadsDir = "uploads"

// Record is one stored submission. The audio lives on disk under
// <data dir>/uploads/<AudioFile>.
type Record struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Address   string    `json:"address" gorm:"type:text;not null"`
	AudioFile string    `json:"audioFile" gorm:"column:audio_file;type:varchar(64);not null"`
	MediaType string    `json:"mediaType" gorm:"column:media_type;type:varchar(100);not null"`
	Size      int64     `json:"size" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

type Store struct {
	db  *gorm.DB
	dir string
}

// OpenStore opens (creating if needed) the sqlite database and upload
// directory under dataDir.
func OpenStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, uploadsDir), 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(dataDir, "rekam.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &Store{db: db, dir: dataDir}, nil
}

func (s *Store) UploadDir() string {
	return filepath.Join(s.dir, uploadsDir)
}

// List returns every record, oldest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var out []Record
	if err := s.db.WithContext(ctx).Order("created_at asc, rowid asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create writes the audio file and inserts the record. The file is removed
// again if the insert fails.
func (s *Store) Create(ctx context.Context, name, address, mediaType, ext string, audio []byte) (Record, error) {
	id := uuid.NewString()
	rec := Record{
		ID:        id,
		Name:      name,
		Address:   address,
		AudioFile: id + ext,
		MediaType: mediaType,
		Size:      int64(len(audio)),
	}
	path := filepath.Join(s.UploadDir(), rec.AudioFile)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return Record{}, fmt.Errorf("writing audio: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		os.Remove(path)
		return Record{}, fmt.Errorf("inserting record: %w", err)
	}
	return rec, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
