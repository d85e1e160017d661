package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	. "src.tabl.sh/pkg/store/storedefs"
)

func init() {
	initDB["initialize book bucket"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketBook))
		return err
	}
}

// SaveBook saves a snapshot under the given name, replacing any earlier one.
func (s *dbStore) SaveBook(name string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketBook)).Put([]byte(name), data)
	})
}

// Book loads the snapshot saved under the given name.
func (s *dbStore) Book(name string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketBook)).Get([]byte(name))
		if v == nil {
			return ErrNoBook
		}
		if err := json.Unmarshal(v, &snap); err != nil {
			return fmt.Errorf("book %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Books returns the names of all saved books, in lexicographical order.
func (s *dbStore) Books() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketBook)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// DelBook deletes a saved book. Deleting a book that does not exist is not an
// error.
func (s *dbStore) DelBook(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketBook)).Delete([]byte(name))
	})
}
