package history

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
	bolt "go.etcd.io/bbolt"
)

var historyBucket = []byte("analysis_history")

// BoltStore keeps records in an embedded bbolt file. Keys are the creation
// time in big-endian nanoseconds followed by the record ID, so cursor order is
// chronological.
type BoltStore struct {
	db     *bolt.DB
	logger *logger.Logger
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string, log *logger.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt history %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(historyBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bbolt bucket: %w", err)
	}

	log = log.WithComponent("history")
	log.Info("History store initialized", zap.String("driver", "bolt"), zap.String("path", path))

	return &BoltStore{db: db, logger: log}, nil
}

func recordKey(r *Record) []byte {
	key := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(key, uint64(r.CreatedAt.UnixNano()))
	return append(key, r.ID...)
}

func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

// Save implements Store
func (b *BoltStore) Save(ctx context.Context, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(historyBucket).Put(recordKey(r), data)
	}); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Recent implements Store
func (b *BoltStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	records := []Record{}
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// Stats implements Store
func (b *BoltStore) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()
	var sum float64

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(historyBucket).ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			stats.add(&r, &sum)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats.finish(sum), nil
}

// Prune implements Store
func (b *BoltStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := timeKey(before)
	var removed int64

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(historyBucket)
		var stale [][]byte
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k[:8], cutoff) < 0; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return removed, nil
}

// Close implements Store
func (b *BoltStore) Close() error {
	return b.db.Close()
}
