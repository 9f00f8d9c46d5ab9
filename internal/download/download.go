package download

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "playhead"
	dbFileName = "downloads.db"
)

// Store indexes media files downloaded for offline playback. A session
// built from a downloaded item plays the local file and skips all server
// reporting.
type Store struct {
	db   *sql.DB
	root string
}

// Entry is one indexed download.
type Entry struct {
	ItemID   string
	Filename string
	Size     int64
	AddedAt  time.Time
}

// Open opens the index in the user data directory, creating it on first
// use.
func Open() (*Store, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	root := filepath.Join(filepath.Dir(dbPath), "downloads")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return openAt(dbPath, root)
}

func openAt(dbPath, root string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, root: root}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			item_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (item_id, filename)
		);

		CREATE INDEX IF NOT EXISTS idx_downloads_item ON downloads(item_id);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add records a completed download. Re-adding the same file updates its
// size and timestamp.
func (s *Store) Add(itemID, filename string, size int64) error {
	_, err := s.db.Exec(`
		INSERT INTO downloads (item_id, filename, size, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(item_id, filename) DO UPDATE SET
			size = excluded.size,
			added_at = excluded.added_at
	`, itemID, filename, size, time.Now().Unix())
	return err
}

// Has reports whether the item's media file is available locally.
func (s *Store) Has(itemID, filename string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM downloads WHERE item_id = ? AND filename = ?
	`, itemID, filename).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ErrNotDownloaded is returned by FileURL for items not in the index.
var ErrNotDownloaded = errors.New("item not downloaded")

// FileURL returns the file:// URL of a downloaded media file, suitable as
// a playback source.
func (s *Store) FileURL(itemID, filename string) (string, error) {
	ok, err := s.Has(itemID, filename)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotDownloaded
	}
	return "file://" + filepath.Join(s.root, itemID, filename), nil
}

// Remove drops every file indexed for the item.
func (s *Store) Remove(itemID string) error {
	_, err := s.db.Exec(`DELETE FROM downloads WHERE item_id = ?`, itemID)
	return err
}

// List returns all indexed downloads, most recent first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT item_id, filename, size, added_at
		FROM downloads
		ORDER BY added_at DESC, item_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var addedAt int64
		if err := rows.Scan(&e.ItemID, &e.Filename, &e.Size, &addedAt); err != nil {
			return nil, err
		}
		e.AddedAt = time.Unix(addedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
