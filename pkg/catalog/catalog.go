// Package catalog persists the song library and the singer request queue
// in SQLite. It is the simple CRUD collaborator the playback engine pulls
// its next song from; no playback logic lives here.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a song or request does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrQueueEmpty is returned by PopNextRequest when no requests are
// pending.
var ErrQueueEmpty = errors.New("catalog: request queue is empty")

// Song is a catalog entry pointing at a parsed-song file on disk.
type Song struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Title           string `gorm:"uniqueIndex:idx_title_unique"`
	Path            string
	DurationSeconds float64
	CreatedAt       time.Time
}

// Request is one queued play request.
type Request struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	SongID    string `gorm:"type:varchar(36);index:idx_request_song"`
	Singer    string
	CreatedAt time.Time `gorm:"index:idx_request_order"`
}

// Catalog wraps the gorm handle.
type Catalog struct {
	db *gorm.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Catalog, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.AutoMigrate(&Song{}, &Request{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	return sqlDB.Close()
}

// AddSong registers a song file and returns its ID. Registering an
// existing title returns the existing ID with the path refreshed.
func (c *Catalog) AddSong(title, path string, durationSeconds float64) (string, error) {
	var existing Song
	err := c.db.Where("title = ?", title).First(&existing).Error
	if err == nil {
		if existing.Path != path {
			if err := c.db.Model(&existing).Update("Path", path).Error; err != nil {
				return "", fmt.Errorf("updating song path: %w", err)
			}
		}
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing song: %w", err)
	}

	song := Song{
		ID:              uuid.NewString(),
		Title:           title,
		Path:            path,
		DurationSeconds: durationSeconds,
	}
	if err := c.db.Create(&song).Error; err != nil {
		return "", fmt.Errorf("creating song: %w", err)
	}
	return song.ID, nil
}

// GetSong fetches one catalog entry by ID.
func (c *Catalog) GetSong(id string) (*Song, error) {
	var song Song
	err := c.db.Where("id = ?", id).First(&song).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: song %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &song, nil
}

// ListSongs returns all catalog entries ordered by title.
func (c *Catalog) ListSongs() ([]Song, error) {
	var songs []Song
	if err := c.db.Order("title").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	return songs, nil
}

// DeleteSong removes a catalog entry and any queued requests for it.
func (c *Catalog) DeleteSong(id string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", id).Delete(&Request{}).Error; err != nil {
			return fmt.Errorf("deleting requests: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&Song{})
		if res.Error != nil {
			return fmt.Errorf("deleting song: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: song %s", ErrNotFound, id)
		}
		return nil
	})
}

// Enqueue appends a play request for a song.
func (c *Catalog) Enqueue(songID, singer string) (string, error) {
	if _, err := c.GetSong(songID); err != nil {
		return "", err
	}
	req := Request{
		ID:     uuid.NewString(),
		SongID: songID,
		Singer: singer,
	}
	if err := c.db.Create(&req).Error; err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return req.ID, nil
}

// PendingRequests returns the queue in arrival order.
func (c *Catalog) PendingRequests() ([]Request, error) {
	var reqs []Request
	if err := c.db.Order("created_at, id").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	return reqs, nil
}

// PopNextRequest removes and returns the oldest queued request together
// with its song.
func (c *Catalog) PopNextRequest() (*Request, *Song, error) {
	var req Request
	var s *Song
	err := c.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Order("created_at, id").First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQueueEmpty
		}
		if err != nil {
			return fmt.Errorf("querying next request: %w", err)
		}
		var sng Song
		if err := tx.Where("id = ?", req.SongID).First(&sng).Error; err != nil {
			return fmt.Errorf("querying requested song: %w", err)
		}
		s = &sng
		return tx.Delete(&req).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &req, s, nil
}
