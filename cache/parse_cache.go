// Package cache stores rendered parse results in BoltDB with an in-memory
// mirror for fast reads.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "parses"

var errBucketMissing = errors.New("cache bucket missing")

// Entry is one cached parse result. Data holds the serialized document,
// gzipped when Compressed is set.
type Entry struct {
	Format     string    `json:"format"`
	Data       []byte    `json:"data"`
	Compressed bool      `json:"compressed,omitempty"`
	StoredAt   time.Time `json:"storedAt"`
}

// ParseCache wraps BoltDB with an in-memory copy of every entry
type ParseCache struct {
	mu          sync.RWMutex
	db          *bolt.DB
	memCache    sync.Map
	dbPath      string
	backupPath  string
	compression bool
}

// Open opens or creates the cache database at dbPath
func Open(dbPath, backupPath string, compression bool) (*ParseCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	pc := &ParseCache{db: db, dbPath: dbPath, backupPath: backupPath, compression: compression}
	if err := pc.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCacheInit, err)
	}
	log.Infof("%s Parse cache ready at %s (compression: %v)", logcolors.LogCacheInit, dbPath, compression)
	return pc, nil
}

func (pc *ParseCache) loadToMemory() error {
	count := 0
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketMissing
		}
		return b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, k, err)
				return nil
			}
			pc.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}
	log.Infof("%s Loaded %d entries from disk", logcolors.LogCache, count)
	return nil
}

func (pc *ParseCache) decode(key string, entry Entry) ([]byte, string, bool) {
	if !entry.Compressed {
		return entry.Data, entry.Format, true
	}
	data, err := utils.Decompress(entry.Data)
	if err != nil {
		log.Errorf("%s Failed to decompress %s: %v", logcolors.LogCache, key, err)
		return nil, "", false
	}
	return data, entry.Format, true
}

// Get returns the document stored under key with the format it was parsed as
func (pc *ParseCache) Get(key string) ([]byte, string, bool) {
	if v, ok := pc.memCache.Load(key); ok {
		return pc.decode(key, v.(Entry))
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	var entry Entry
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketMissing
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("key not found")
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, "", false
	}
	pc.memCache.Store(key, entry)
	return pc.decode(key, entry)
}

// Set stores a document under key
func (pc *ParseCache) Set(key, format string, data []byte) error {
	entry := Entry{Format: format, Data: data, StoredAt: time.Now().UTC()}
	if pc.compression {
		compressed, err := utils.Compress(data)
		if err != nil {
			return fmt.Errorf("compress %s: %w", key, err)
		}
		entry.Data, entry.Compressed = compressed, true
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	err = pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketMissing
		}
		return b.Put([]byte(key), raw)
	})
	if err != nil {
		return err
	}
	pc.memCache.Store(key, entry)
	log.Debugf("%s Stored %s result (%d bytes)", logcolors.LogCacheParse, format, len(entry.Data))
	return nil
}

// Delete removes a key
func (pc *ParseCache) Delete(key string) error {
	pc.memCache.Delete(key)
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketMissing
		}
		return b.Delete([]byte(key))
	})
}

// Clear removes every entry
func (pc *ParseCache) Clear() error {
	pc.memCache.Range(func(k, _ any) bool {
		pc.memCache.Delete(k)
		return true
	})
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	err := pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err == nil {
		log.Infof("%s Cache cleared", logcolors.LogCacheClear)
	}
	return err
}

// Stats returns the number of entries and their stored size in KB
func (pc *ParseCache) Stats() (numKeys int, sizeInKB int) {
	pc.memCache.Range(func(k, v any) bool {
		numKeys++
		sizeInKB += len(k.(string)) + len(v.(Entry).Data)
		return true
	})
	return numKeys, sizeInKB / 1024
}

// FormatCounts returns how many cached entries came from each format
func (pc *ParseCache) FormatCounts() map[string]int {
	counts := make(map[string]int)
	pc.memCache.Range(func(_, v any) bool {
		counts[v.(Entry).Format]++
		return true
	})
	return counts
}

// Backup writes a consistent snapshot of the database into the backup
// directory and returns its path
func (pc *ParseCache) Backup() (string, error) {
	name := fmt.Sprintf("parse_cache_%s.db", time.Now().UTC().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(pc.backupPath, name)

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	err := pc.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	log.Infof("%s Backup written to %s", logcolors.LogCacheBackup, path)
	return path, nil
}

// BackupAndClear backs the cache up and then clears it
func (pc *ParseCache) BackupAndClear() (string, error) {
	path, err := pc.Backup()
	if err != nil {
		return "", err
	}
	if err := pc.Clear(); err != nil {
		return path, fmt.Errorf("backup created but failed to clear cache: %w", err)
	}
	return path, nil
}

// BackupInfo describes a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns the backups on disk, newest first
func (pc *ParseCache) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(pc.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{FileName: e.Name(), Size: info.Size(), CreatedAt: info.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// Close closes the database
func (pc *ParseCache) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.db == nil {
		return nil
	}
	err := pc.db.Close()
	pc.db = nil
	return err
}
