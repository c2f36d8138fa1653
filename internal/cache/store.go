package cache

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

// Store is the single-file relational item cache. Every exported method
// takes the same process-wide mutex around db, matching the teacher's
// single-connection-pool discipline for SQLite, which doesn't tolerate
// concurrent writers well.
type Store struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open opens (creating if necessary) the SQLite file at path, applying
// the pragmas the cache depends on: WAL journaling, relaxed durability
// (synchronous=OFF, matching the spec's "disable synchronous writes"),
// and case-insensitive LIKE for search().
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=OFF&_case_sensitive_like=OFF", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, ierr.NewDbError("open", err)
	}

	if err := db.AutoMigrate(&feedRow{}, &itemRow{}); err != nil {
		return nil, ierr.NewDbError("automigrate", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return ierr.NewDbError("close", err)
	}
	return sqlDB.Close()
}

func nowUTC() time.Time { return time.Now().UTC() }
