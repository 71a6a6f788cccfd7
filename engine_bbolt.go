package blockstore

import (
	"context"
	"time"

	"go.etcd.io/bbolt"
)

// boltEngine adapts go.etcd.io/bbolt to the kvEngine interface. bbolt's
// ordered byte-slice keys and single-writer transactions give us prefix
// iteration (via Cursor.Seek) and atomic multi-op commit (via Update)
// for free.
type boltEngine struct {
	db *bbolt.DB
}

// openBoltEngine opens (creating if absent) a bbolt database at path.
func openBoltEngine(path string) (*boltEngine, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, upstreamIOErrorf("open kv engine: %w", err)
	}
	return &boltEngine{db: db}, nil
}

func (e *boltEngine) get(bucket, key []byte) ([]byte, bool, error) {
	var value []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, upstreamIOErrorf("get: %w", err)
	}
	return value, value != nil, nil
}

func (e *boltEngine) put(bucket, key, value []byte) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
	if err != nil {
		return upstreamIOErrorf("put: %w", err)
	}
	return nil
}

func (e *boltEngine) del(bucket, key []byte) (bool, error) {
	var existed bool
	err := e.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		existed = b.Get(key) != nil
		if !existed {
			return nil
		}
		return b.Delete(key)
	})
	if err != nil {
		return false, upstreamIOErrorf("del: %w", err)
	}
	return existed, nil
}

func (e *boltEngine) has(bucket, key []byte) (bool, error) {
	_, ok, err := e.get(bucket, key)
	return ok, err
}

func (e *boltEngine) iteratePrefix(bucket, prefix []byte, fn func(key, value []byte) bool) error {
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			if !fn(append([]byte(nil), k...), append([]byte(nil), v...)) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return upstreamIOErrorf("iteratePrefix: %w", err)
	}
	return nil
}

func (e *boltEngine) batch(ctx context.Context, ops []kvOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.db.Update(func(tx *bbolt.Tx) error {
		buckets := make(map[string]*bbolt.Bucket)
		bucketFor := func(name []byte) (*bbolt.Bucket, error) {
			if b, ok := buckets[string(name)]; ok {
				return b, nil
			}
			b, err := tx.CreateBucketIfNotExists(name)
			if err != nil {
				return nil, err
			}
			buckets[string(name)] = b
			return b, nil
		}

		for _, op := range ops {
			b, err := bucketFor(op.bucket)
			if err != nil {
				return err
			}
			switch op.kind {
			case kvOpPut:
				if err := b.Put(op.key, op.value); err != nil {
					return err
				}
			case kvOpDelete:
				if err := b.Delete(op.key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return upstreamIOErrorf("batch: %w", err)
	}
	return nil
}

func (e *boltEngine) close() error {
	if err := e.db.Close(); err != nil {
		return upstreamIOErrorf("close kv engine: %w", err)
	}
	return nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
