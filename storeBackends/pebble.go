package storebackends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fileconv/storage"

	pebble "github.com/cockroachdb/pebble"
)

const (
	pebbleDataPrefix = "d/"
	pebbleMetaPrefix = "m/"
)

// pebbleRecord is the per-object header kept beside the content
type pebbleRecord struct {
	Meta     map[string]string `json:"meta"`
	Size     int64             `json:"size"`
	Modified time.Time         `json:"modified"`
}

// Pebble is an embedded single-node backend. Each object is two keys: the
// content under d/{key} and a JSON header under m/{key}, written in one batch.
type Pebble struct {
	db  *pebble.DB
	now func() time.Time
}

// OpenPebble opens (or creates) the store at dbPath. opts may be nil.
func OpenPebble(dbPath string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	return &Pebble{db: db, now: time.Now}, nil
}

func (p *Pebble) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Pebble) Put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	if meta == nil {
		meta = map[string]string{}
	}
	header, err := json.Marshal(pebbleRecord{Meta: meta, Size: int64(len(data)), Modified: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal object header: %w", err)
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(pebbleDataPrefix+key), data, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(pebbleMetaPrefix+key), header, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// get copies the value out before the closer releases it
func (p *Pebble) get(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (p *Pebble) Head(ctx context.Context, key string) (map[string]string, error) {
	raw, err := p.get(pebbleMetaPrefix + key)
	if err != nil {
		return nil, err
	}
	var rec pebbleRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal object header: %w", err)
	}
	if rec.Meta == nil {
		rec.Meta = map[string]string{}
	}
	return rec.Meta, nil
}

func (p *Pebble) Get(ctx context.Context, key string) ([]byte, error) {
	return p.get(pebbleDataPrefix + key)
}

func (p *Pebble) Delete(ctx context.Context, key string) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete([]byte(pebbleDataPrefix+key), nil); err != nil {
		return err
	}
	if err := batch.Delete([]byte(pebbleMetaPrefix+key), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// List scans only the headers; keys come back in byte order
func (p *Pebble) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	lower := []byte(pebbleMetaPrefix + prefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(lower),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var objs []storage.ObjectInfo
	for iter.First(); iter.Valid(); iter.Next() {
		var rec pebbleRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // Skip invalid records
		}
		objs = append(objs, storage.ObjectInfo{
			Key:          string(iter.Key()[len(pebbleMetaPrefix):]),
			Size:         rec.Size,
			LastModified: rec.Modified,
		})
	}
	return objs, iter.Error()
}

// CheckHealth performs a basic read against the database
func (p *Pebble) CheckHealth(ctx context.Context) error {
	_, closer, err := p.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}

// prefixUpperBound returns the smallest key greater than every key with prefix b
func prefixUpperBound(b []byte) []byte {
	end := append([]byte(nil), b...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
