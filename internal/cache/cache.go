// Package cache is the two-level translation cache from spec §4.G: an
// in-process LRU in front of a persistent bbolt store, both keyed by
// (text, src_upper, tgt_upper). Grounded on the teacher's peersmgr bbolt
// wrapper for the open/bucket/Update-View shape, with the key-value schema
// and TTL cleanup built fresh for this domain.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"
)

const (
	translationsBucket        = "translations"
	createdAtIndexBucket      = "translations_by_created_at"
	dbOpenTimeout             = time.Second
	dbFileMode    os.FileMode = 0o600

	// DefaultCapacity is the default LRU size per §4.G.
	DefaultCapacity = 1000
)

var (
	translationsBucketBytes   = []byte(translationsBucket)
	createdAtIndexBucketBytes = []byte(createdAtIndexBucket)
)

// Key identifies one cached translation.
type Key struct {
	Text string
	Src  string
	Tgt  string
}

func normalizeKey(k Key) Key {
	return Key{Text: k.Text, Src: strings.ToUpper(k.Src), Tgt: strings.ToUpper(k.Tgt)}
}

// wireKey is how a Key is serialized as a bbolt key: the three fields joined
// by a separator unlikely to appear in a language code.
func (k Key) wireKey() []byte {
	return []byte(k.Text + "\x00" + k.Src + "\x00" + k.Tgt)
}

type record struct {
	Translated string `json:"translated"`
	CreatedAt  int64  `json:"created_at"`
}

// Cache is the two-level store. Safe for concurrent use: the pipeline
// goroutine and the MT delivery path (§5) may both call into it.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[Key, string]
	db  *bbolt.DB
	ttl time.Duration
}

// Open opens (creating if absent) the bbolt file at path and returns a Cache
// with the given LRU capacity and entry TTL.
func Open(path string, capacity int, ttl time.Duration) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("cache: ensure dir %q: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(translationsBucketBytes); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(createdAtIndexBucketBytes)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: ensure buckets: %w", err)
	}

	front, err := lru.New[Key, string](capacity)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: new lru: %w", err)
	}

	return &Cache{lru: front, db: db, ttl: ttl}, nil
}

// Close closes the underlying bbolt file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get checks the LRU first, then the persistent store; a persistent hit past
// its TTL is deleted and reported as a miss, otherwise it's promoted into
// the LRU before being returned.
func (c *Cache) Get(k Key) (string, bool) {
	k = normalizeKey(k)

	c.mu.Lock()
	if v, ok := c.lru.Get(k); ok {
		c.mu.Unlock()
		return v, true
	}
	c.mu.Unlock()

	rec, ok, err := c.getPersistent(k)
	if err != nil || !ok {
		return "", false
	}

	if c.ttl > 0 && time.Now().Unix()-rec.CreatedAt >= int64(c.ttl.Seconds()) {
		_ = c.deletePersistent(k)
		return "", false
	}

	c.mu.Lock()
	c.lru.Add(k, rec.Translated)
	c.mu.Unlock()
	return rec.Translated, true
}

// Put writes to both layers.
func (c *Cache) Put(k Key, translated string) error {
	k = normalizeKey(k)

	c.mu.Lock()
	c.lru.Add(k, translated)
	c.mu.Unlock()

	return c.putPersistent(k, translated, time.Now().Unix())
}

// Cleanup deletes every persistent row whose created_at is older than the
// cache's TTL and returns how many rows were removed.
func (c *Cache) Cleanup() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Unix() - int64(c.ttl.Seconds())

	var toDelete []Key
	if err := c.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(createdAtIndexBucketBytes)
		if idx == nil {
			return nil
		}
		return idx.ForEach(func(indexKey, wireKey []byte) error {
			if len(indexKey) < 8 {
				return nil
			}
			createdAt := int64(binary.BigEndian.Uint64(indexKey[:8]))
			if createdAt >= cutoff {
				return nil
			}
			toDelete = append(toDelete, decodeWireKey(wireKey))
			return nil
		})
	}); err != nil {
		return 0, fmt.Errorf("cache: scan created_at index: %w", err)
	}

	for _, k := range toDelete {
		if err := c.deletePersistent(k); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}

func (c *Cache) getPersistent(k Key) (record, bool, error) {
	var rec record
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(translationsBucketBytes)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(k.wireKey())
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	return rec, found, err
}

func (c *Cache) putPersistent(k Key, translated string, createdAt int64) error {
	rec := record{Translated: translated, CreatedAt: createdAt}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal record: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(translationsBucketBytes)
		idx := tx.Bucket(createdAtIndexBucketBytes)
		if bucket == nil || idx == nil {
			return errors.New("cache: buckets not initialized")
		}
		if err := bucket.Put(k.wireKey(), payload); err != nil {
			return err
		}
		return idx.Put(createdAtIndexKey(createdAt, k), k.wireKey())
	})
}

func (c *Cache) deletePersistent(k Key) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(translationsBucketBytes)
		idx := tx.Bucket(createdAtIndexBucketBytes)
		if bucket == nil || idx == nil {
			return nil
		}
		rec, ok, err := c.getPersistentLocked(tx, k)
		if err != nil {
			return err
		}
		if ok {
			_ = idx.Delete(createdAtIndexKey(rec.CreatedAt, k))
		}
		return bucket.Delete(k.wireKey())
	})
}

func (c *Cache) getPersistentLocked(tx *bbolt.Tx, k Key) (record, bool, error) {
	bucket := tx.Bucket(translationsBucketBytes)
	if bucket == nil {
		return record{}, false, nil
	}
	raw := bucket.Get(k.wireKey())
	if raw == nil {
		return record{}, false, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, false, err
	}
	return rec, true, nil
}

// createdAtIndexKey is an 8-byte big-endian timestamp followed by the
// translation's own wire key, giving bbolt's naturally sorted b-tree a
// secondary index ordered by created_at for efficient range cleanup.
func createdAtIndexKey(createdAt int64, k Key) []byte {
	out := make([]byte, 8+len(k.wireKey()))
	binary.BigEndian.PutUint64(out[:8], uint64(createdAt))
	copy(out[8:], k.wireKey())
	return out
}

func decodeWireKey(wire []byte) Key {
	parts := strings.SplitN(string(wire), "\x00", 3)
	if len(parts) != 3 {
		return Key{}
	}
	return Key{Text: parts[0], Src: parts[1], Tgt: parts[2]}
}
