// Package modelmeta persists the per-model metadata sidecar: the model's
// Dict properties and its delta-queue checkpoint (schema version, last
// committed batch number), so that metadata can be updated without
// rewriting the whole batch journal. One bucket per model UUID, values
// stored under a "." key, buckets created on a model's first write, and
// db-wide locking left to bbolt's own single-writer transactions.
package modelmeta

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
)

const (
	propertiesBucket = "properties"
	checkpointBucket = "checkpoint"
)

// Checkpoint records where the batch journal's delta queue last settled
// for a model, so recovery can skip replaying batches already folded in.
type Checkpoint struct {
	SchemaVersion uint64
	LastCommit    uint64
}

func encodeCheckpoint(c Checkpoint) []byte {
	dst := appendU64LE(nil, c.SchemaVersion)
	dst = appendU64LE(dst, c.LastCommit)
	return dst
}

func decodeCheckpoint(src []byte) (Checkpoint, error) {
	if len(src) < 16 {
		return Checkpoint{}, ferr.New(ferr.InternalDecodeStructureCorrupted, "short checkpoint record")
	}
	return Checkpoint{
		SchemaVersion: binary.LittleEndian.Uint64(src[0:8]),
		LastCommit:    binary.LittleEndian.Uint64(src[8:16]),
	}, nil
}

// Store wraps a bbolt database holding one bucket per model UUID, each
// with a "properties" sub-bucket (the model's Dict) and a "checkpoint"
// sub-bucket (schema version / last committed batch).
type Store struct {
	db *bolt.DB
}

// Open creates or attaches to the metadata sidecar at path.
func Open(path string, waitTime time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: waitTime})
	if err != nil {
		return nil, ferr.Wrapf(err, ferr.InternalDecodeStructureCorrupted, "opening model metadata sidecar %q", path)
	}
	s := &Store{db: db}
	return s, nil
}

// Close releases the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) modelBucket(tx *bolt.Tx, modelUUID string, createIfMissing bool) (*bolt.Bucket, error) {
	var bucket *bolt.Bucket
	var err error
	if createIfMissing {
		bucket, err = tx.CreateBucketIfNotExists([]byte(modelUUID))
	} else {
		bucket = tx.Bucket([]byte(modelUUID))
	}
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		return nil, ferr.Newf(ferr.ObjectNotFound, "no metadata bucket for model %q", modelUUID)
	}
	return bucket, nil
}

// PutProperties overwrites the stored Dict for a model.
func (s *Store) PutProperties(modelUUID string, d gns.Dict) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		model, err := s.modelBucket(tx, modelUUID, true)
		if err != nil {
			return err
		}
		sub, err := model.CreateBucketIfNotExists([]byte(propertiesBucket))
		if err != nil {
			return err
		}
		return sub.Put([]byte("."), gns.EncodeDict(nil, d))
	})
}

// GetProperties returns the stored Dict for a model, or an empty Dict if
// none has ever been written.
func (s *Store) GetProperties(modelUUID string) (gns.Dict, error) {
	var out gns.Dict
	err := s.db.View(func(tx *bolt.Tx) error {
		model, err := s.modelBucket(tx, modelUUID, false)
		if err != nil {
			out = gns.Dict{}
			return nil
		}
		sub := model.Bucket([]byte(propertiesBucket))
		if sub == nil {
			out = gns.Dict{}
			return nil
		}
		raw := sub.Get([]byte("."))
		if raw == nil {
			out = gns.Dict{}
			return nil
		}
		d, _, err := gns.DecodeDict(raw)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

// PutCheckpoint records the delta-queue watermark for a model.
func (s *Store) PutCheckpoint(modelUUID string, c Checkpoint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		model, err := s.modelBucket(tx, modelUUID, true)
		if err != nil {
			return err
		}
		sub, err := model.CreateBucketIfNotExists([]byte(checkpointBucket))
		if err != nil {
			return err
		}
		return sub.Put([]byte("."), encodeCheckpoint(c))
	})
}

// GetCheckpoint returns the stored checkpoint for a model, and false if
// none has ever been written (a freshly created model).
func (s *Store) GetCheckpoint(modelUUID string) (Checkpoint, bool, error) {
	var out Checkpoint
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		model, err := s.modelBucket(tx, modelUUID, false)
		if err != nil {
			return nil
		}
		sub := model.Bucket([]byte(checkpointBucket))
		if sub == nil {
			return nil
		}
		raw := sub.Get([]byte("."))
		if raw == nil {
			return nil
		}
		c, err := decodeCheckpoint(raw)
		if err != nil {
			return err
		}
		out, found = c, true
		return nil
	})
	return out, found, err
}

// DeleteModel drops all metadata for a model, used when a model is
// dropped from the namespace.
func (s *Store) DeleteModel(modelUUID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(modelUUID)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(modelUUID))
	})
}
