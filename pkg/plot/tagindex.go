package plot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	metaBucket   = []byte("meta")
	highWaterKey = []byte("high_water_index")
)

// TagEntry is one (tag, index) pair as stored in a salt's bucket.
type TagEntry struct {
	Tag   [8]byte
	Index uint64
}

// TagIndex is the ordered, salt-sharded key/value index of piece tags,
// backed by a single bbolt database. Each salt owns one bucket so that
// dropping a commitment (removeCommitment) is a single DeleteBucket call
// rather than a prefix scan.
type TagIndex struct {
	db *bolt.DB
}

// OpenTagIndex opens (creating if absent) the bbolt file at path.
func OpenTagIndex(path string) (*TagIndex, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlotTagsOpen, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPlotTagsOpen, err)
	}

	return &TagIndex{db: db}, nil
}

// Close closes the underlying bbolt database.
func (ti *TagIndex) Close() error {
	return ti.db.Close()
}

func saltBucketName(salt [32]byte) []byte {
	name := make([]byte, len(salt))
	copy(name, salt[:])
	return name
}

// PutMany records tag/index pairs under salt's bucket in a single
// transaction, and advances the high-water index if needed so IsEmpty
// reflects the write.
func (ti *TagIndex) PutMany(salt [32]byte, entries []TagEntry, highWaterIndex uint64) error {
	return ti.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(saltBucketName(salt))
		if err != nil {
			return err
		}
		for _, entry := range entries {
			var value [8]byte
			binary.LittleEndian.PutUint64(value[:], entry.Index)
			if err := bucket.Put(entry.Tag[:], value[:]); err != nil {
				return err
			}
		}
		return bumpHighWaterIndex(tx, highWaterIndex)
	})
}

func bumpHighWaterIndex(tx *bolt.Tx, atLeast uint64) error {
	meta := tx.Bucket(metaBucket)
	current := uint64(0)
	if raw := meta.Get(highWaterKey); raw != nil {
		current = binary.BigEndian.Uint64(raw)
	}
	if atLeast <= current {
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], atLeast)
	return meta.Put(highWaterKey, buf[:])
}

// HighWaterIndex returns one past the highest piece index ever written.
func (ti *TagIndex) HighWaterIndex() (uint64, error) {
	var result uint64
	err := ti.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if raw := meta.Get(highWaterKey); raw != nil {
			result = binary.BigEndian.Uint64(raw)
		}
		return nil
	})
	return result, err
}

// IsEmpty reports whether any piece has ever been written to the plot.
func (ti *TagIndex) IsEmpty() (bool, error) {
	highWater, err := ti.HighWaterIndex()
	if err != nil {
		return false, err
	}
	return highWater == 0, nil
}

// DeleteCommitment drops every tag stored under salt. A salt with no
// bucket is treated as already-removed, not an error.
func (ti *TagIndex) DeleteCommitment(salt [32]byte) error {
	return ti.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(saltBucketName(salt))
		if err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

// FindByRange returns the first tag stored under any currently-present
// salt bucket whose big-endian uint64 value falls in the ring range
// centered on target with width rng, wrapping around 2^64 the same way
// the upstream reference implementation's unsigned overflowing
// arithmetic does. The tag index does not take a salt: the farmer
// relies on remove_commitment having dropped any displaced salt's
// bucket before the next query, so in steady state exactly one bucket
// has data; during the brief window where a precomputed next-salt
// commitment coexists with the current one, buckets are scanned in
// ascending salt-byte order and the first match wins.
func (ti *TagIndex) FindByRange(target [8]byte, rng uint64) (TagEntry, bool, error) {
	targetU64 := binary.BigEndian.Uint64(target[:])
	half := rng / 2

	lowerOverflowed := targetU64 < half
	upperOverflowed := targetU64 > ^uint64(0)-half

	lower := targetU64 - half
	upper := targetU64 + half
	wraps := lowerOverflowed || upperOverflowed

	var found TagEntry
	var ok bool

	err := ti.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bolt.Bucket) error {
			if ok || bytes.Equal(name, metaBucket) {
				return nil
			}

			cursor := bucket.Cursor()
			scan := func(from []byte, stopAt *uint64) bool {
				for k, v := cursor.Seek(from); k != nil; k, v = cursor.Next() {
					if stopAt != nil && binary.BigEndian.Uint64(k) > *stopAt {
						return false
					}
					copy(found.Tag[:], k)
					found.Index = binary.LittleEndian.Uint64(v)
					return true
				}
				return false
			}

			if wraps {
				var zero [8]byte
				if scan(zero[:], &upper) {
					ok = true
					return nil
				}
				var lowerBytes [8]byte
				binary.BigEndian.PutUint64(lowerBytes[:], lower)
				if scan(lowerBytes[:], nil) {
					ok = true
				}
			} else {
				var lowerBytes [8]byte
				binary.BigEndian.PutUint64(lowerBytes[:], lower)
				if scan(lowerBytes[:], &upper) {
					ok = true
				}
			}
			return nil
		})
	})

	return found, ok, err
}
