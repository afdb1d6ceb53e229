package session

import (
	"encoding/json"
	"fmt"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

// RecordKey is where the single session record lives in the store.
const RecordKey = "ihc.session"

// SaveRecord overwrites the persisted session record.
func SaveRecord(s Store, rec types.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding record: %v", ErrUnavailable, err)
	}
	return s.Set(RecordKey, string(data))
}

// LoadRecord reads the persisted session record, reporting absence through
// the second return value.
func LoadRecord(s Store) (*types.SessionRecord, bool, error) {
	raw, ok, err := s.Get(RecordKey)
	if err != nil || !ok {
		return nil, false, err
	}
	var rec types.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// A corrupt record is as good as absent; the caller starts fresh.
		return nil, false, fmt.Errorf("%w: decoding record: %v", ErrUnavailable, err)
	}
	return &rec, true, nil
}

// ClearRecord removes the persisted session record.
func ClearRecord(s Store) error {
	return s.Remove(RecordKey)
}
