// Package bbolt stores the full DICOM JSON metadata of indexed instances.
package bbolt

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/interfaces"
	"github.com/caio-sobreiro/dicomweb/types"
)

const metadataBucket = "metadata"

// Store is a BoltDB-backed metadata store.
type Store struct {
	db *bbolt.DB
}

var (
	_ interfaces.MetadataStore  = (*Store)(nil)
	_ interfaces.MetadataWriter = (*Store)(nil)
)

// Open opens the database at path, creating it when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bbolt: metadata path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open metadata db")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create metadata bucket")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutMetadata stores ds as the metadata of id, replacing any previous version.
func (s *Store) PutMetadata(ctx context.Context, id types.InstanceIdentifier, ds *dicom.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("bbolt: store is not configured")
	}

	payload, err := json.Marshal(ds)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metadataBucket))
		if bucket == nil {
			return errors.New("bbolt: metadata bucket is missing")
		}
		return bucket.Put(metadataKey(id), payload)
	})
}

// GetMetadata returns the stored metadata of id. Missing instances match
// errors.ErrNotFound.
func (s *Store) GetMetadata(ctx context.Context, id types.InstanceIdentifier) (*dicom.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.New("bbolt: store is not configured")
	}

	ds := dicom.NewDataset()
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metadataBucket))
		if bucket == nil {
			return errors.New("bbolt: metadata bucket is missing")
		}
		payload := bucket.Get(metadataKey(id))
		if payload == nil {
			return errors.Wrapf(errors.ErrNotFound, "instance %s", id.SOPInstanceUID)
		}
		if err := json.Unmarshal(payload, ds); err != nil {
			return errors.Wrap(err, "unmarshal metadata")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// DeleteMetadata removes the metadata of id. Deleting a missing instance is
// not an error.
func (s *Store) DeleteMetadata(ctx context.Context, id types.InstanceIdentifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metadataBucket))
		if bucket == nil {
			return errors.New("bbolt: metadata bucket is missing")
		}
		return bucket.Delete(metadataKey(id))
	})
}

func metadataKey(id types.InstanceIdentifier) []byte {
	return []byte(id.StudyInstanceUID + "/" + id.SeriesInstanceUID + "/" + id.SOPInstanceUID)
}
