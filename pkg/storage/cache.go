package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

const tagBucket = "tags-1"

// ReadTagsFunc reads the tags of a recording.
type ReadTagsFunc func(path string) ([]uint32, error)

// TagCache stores decoded tags so unchanged recordings
// don't have to be parsed on every run.
type TagCache struct {
	dbPath   string
	readTags ReadTagsFunc

	db *bolt.DB
}

// NewTagCache returns a tag cache backed by the database at dbPath.
func NewTagCache(dbPath string, readTags ReadTagsFunc) *TagCache {
	return &TagCache{
		dbPath:   dbPath,
		readTags: readTags,
	}
}

type cacheEntry struct {
	Size    int64    `json:"size"`
	ModTime int64    `json:"modTime"`
	Tags    []uint32 `json:"tags"`
}

// Init opens the database.
func (c *TagCache) Init() error {
	db, err := bolt.Open(c.dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("open tag cache: %w: %v", err, c.dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tagBucket))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("create bucket: %v, %w", tagBucket, err)
	}

	c.db = db
	return nil
}

// Close closes the database.
func (c *TagCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Tags returns the tags of the recording at path. The cached tags are
// used if the size and modification time of the file are unchanged.
// The bool is true on a cache hit.
func (c *TagCache) Tags(path string) ([]uint32, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat: %w", err)
	}
	size, modTime := info.Size(), info.ModTime().UnixNano()

	var cached *cacheEntry
	err = c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(tagBucket)).Get([]byte(path))
		if raw == nil {
			return nil
		}
		var entry cacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			// Corrupt entries are overwritten below.
			return nil //nolint:nilerr
		}
		cached = &entry
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if cached != nil && cached.Size == size && cached.ModTime == modTime {
		return cached.Tags, true, nil
	}

	tags, err := c.readTags(path)
	if err != nil {
		return nil, false, err
	}

	entry := cacheEntry{Size: size, ModTime: modTime, Tags: tags}
	if err := c.put(path, entry); err != nil {
		return nil, false, err
	}
	return tags, false, nil
}

func (c *TagCache) put(path string, entry cacheEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tagBucket)).Put([]byte(path), value)
	})
}
