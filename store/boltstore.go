package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta     = []byte("meta")
	bucketTokens   = []byte("tokens")
	bucketBalances = []byte("balances")
	bucketPools    = []byte("pools")
	bucketHolders  = []byte("holders")
	bucketListings = []byte("listings")
	bucketStreams  = []byte("streams")
	bucketAccounts = []byte("accounts")
	bucketEvents   = []byte("events")

	metaKey = []byte("ledger")

	allBuckets = [][]byte{
		bucketMeta, bucketTokens, bucketBalances, bucketPools, bucketHolders,
		bucketListings, bucketStreams, bucketAccounts, bucketEvents,
	}
)

// BoltStore persists ledger state in a bbolt database. Each Commit is one
// bbolt read-write transaction, so a batch is applied entirely or not at all.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

func put(b *bbolt.Bucket, key []byte, v interface{}) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return b.Put(key, data)
}

// Load reads every bucket in one read-only transaction.
func (s *BoltStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(bucketMeta).Get(metaKey); data != nil {
			if err := decodeGob(data, &snap.Meta); err != nil {
				return fmt.Errorf("boltstore: decode meta: %w", err)
			}
		}
		if err := loadBucket(tx, bucketTokens, &snap.Tokens); err != nil {
			return err
		}
		if err := loadBucket(tx, bucketBalances, &snap.Balances); err != nil {
			return err
		}
		if err := loadBucket(tx, bucketPools, &snap.Pools); err != nil {
			return err
		}
		if err := loadBucket(tx, bucketHolders, &snap.Holders); err != nil {
			return err
		}
		if err := loadBucket(tx, bucketListings, &snap.Listings); err != nil {
			return err
		}
		if err := loadBucket(tx, bucketStreams, &snap.Streams); err != nil {
			return err
		}
		return loadBucket(tx, bucketAccounts, &snap.Accounts)
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load: %w", err)
	}
	return snap, nil
}

// loadBucket decodes every value of a bucket, in key order, into out.
func loadBucket[T any](tx *bbolt.Tx, name []byte, out *[]T) error {
	return tx.Bucket(name).ForEach(func(k, v []byte) error {
		var rec T
		if err := decodeGob(v, &rec); err != nil {
			return fmt.Errorf("boltstore: decode %s/%x: %w", name, k, err)
		}
		*out = append(*out, rec)
		return nil
	})
}

// Commit writes the batch in a single bbolt transaction. Any error rolls the
// whole transaction back.
func (s *BoltStore) Commit(ctx context.Context, batch *Batch) error {
	if batch == nil {
		return ErrNilParam
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if batch.Meta != nil {
			if err := put(tx.Bucket(bucketMeta), metaKey, batch.Meta); err != nil {
				return fmt.Errorf("boltstore: put meta: %w", err)
			}
		}

		tb := tx.Bucket(bucketTokens)
		for _, t := range batch.Tokens {
			if err := put(tb, tokenKey(t.ID), t); err != nil {
				return fmt.Errorf("boltstore: put token %d: %w", t.ID, err)
			}
		}

		bb := tx.Bucket(bucketBalances)
		for _, b := range batch.Balances {
			k := holderKey(b.TokenID, b.Holder)
			if b.Amount == 0 {
				if err := bb.Delete(k); err != nil {
					return fmt.Errorf("boltstore: delete balance: %w", err)
				}
				continue
			}
			if err := put(bb, k, b); err != nil {
				return fmt.Errorf("boltstore: put balance: %w", err)
			}
		}

		pb := tx.Bucket(bucketPools)
		for _, p := range batch.Pools {
			if err := put(pb, tokenKey(p.TokenID), p); err != nil {
				return fmt.Errorf("boltstore: put pool %d: %w", p.TokenID, err)
			}
		}

		hb := tx.Bucket(bucketHolders)
		for _, h := range batch.Holders {
			if err := put(hb, holderKey(h.TokenID, h.Holder), h); err != nil {
				return fmt.Errorf("boltstore: put holder: %w", err)
			}
		}

		lb := tx.Bucket(bucketListings)
		for _, l := range batch.Listings {
			if err := put(lb, tokenKey(l.TokenID), l); err != nil {
				return fmt.Errorf("boltstore: put listing %d: %w", l.TokenID, err)
			}
		}
		for _, id := range batch.DeletedListings {
			if err := lb.Delete(tokenKey(id)); err != nil {
				return fmt.Errorf("boltstore: delete listing %d: %w", id, err)
			}
		}

		sb := tx.Bucket(bucketStreams)
		for _, st := range batch.Streams {
			if err := put(sb, tokenKey(st.TokenID), st); err != nil {
				return fmt.Errorf("boltstore: put stream data %d: %w", st.TokenID, err)
			}
		}

		ab := tx.Bucket(bucketAccounts)
		for _, a := range batch.Accounts {
			if a.Balance == 0 {
				if err := ab.Delete([]byte(a.Principal)); err != nil {
					return fmt.Errorf("boltstore: delete account: %w", err)
				}
				continue
			}
			if err := put(ab, []byte(a.Principal), a); err != nil {
				return fmt.Errorf("boltstore: put account: %w", err)
			}
		}

		eb := tx.Bucket(bucketEvents)
		for _, e := range batch.Events {
			if err := put(eb, tokenKey(e.Seq), e); err != nil {
				return fmt.Errorf("boltstore: put event %d: %w", e.Seq, err)
			}
		}
		return nil
	})
}

// Events returns the event log in sequence order.
func (s *BoltStore) Events(ctx context.Context, tokenID uint64) ([]EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []EventRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var e EventRecord
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("boltstore: decode event %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if tokenID == 0 || e.TokenID == tokenID {
				events = append(events, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list events: %w", err)
	}
	return events, nil
}
