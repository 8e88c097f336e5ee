// Package store persists a log of completed (or crashed, or rejected)
// exchanges to BoltDB, so operators have a queryable record of what the
// coordinator has actually driven. This is purely an operational
// convenience: the coordinator's own in-memory state (schedule, pending
// allocations, bucket list) stays process-lifetime per the spec and is
// never read back from here.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cuemby/aaesync/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketExchanges = []byte("exchanges")

// History is a BoltDB-backed append-and-list log of ExchangeRecords.
type History struct {
	db *bolt.DB
}

// Open opens (creating if needed) the history database under dataDir.
func Open(dataDir string) (*History, error) {
	dbPath := filepath.Join(dataDir, "aaesync.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketExchanges)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create exchanges bucket: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record appends or overwrites an exchange record, keyed by ExchangeID.
func (h *History) Record(rec types.ExchangeRecord) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExchanges)
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal exchange record: %w", err)
		}
		return b.Put([]byte(rec.ExchangeID), data)
	})
}

// Recent returns up to limit exchange records, ordered by FinishedAt
// with the most recently finished last.
func (h *History) Recent(limit int) ([]types.ExchangeRecord, error) {
	var records []types.ExchangeRecord
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExchanges)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec types.ExchangeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal exchange record %s: %w", k, err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys are random exchange ids, so bucket order is not write order;
	// order by finish time instead.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FinishedAt.Before(records[j].FinishedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}
