package client

import (
	"fmt"
	"sort"
	"sync"
)

// RootKey is the key of the record holding the operation's top-level fields.
const RootKey = "client:root"

// Record is one normalized object. Fields pointing at other records hold a Ref.
type Record map[string]interface{}

// Ref links a record field to another record.
type Ref struct {
	Ref string `json:"__ref"`
}

// Store keeps normalized records, merging each new response into what is already known.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewStore() *Store {
	return &Store{records: map[string]Record{}}
}

func (s *Store) Get(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[key]
	if !ok {
		return nil, false
	}
	return copyRecord(r), true
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (s *Store) Root() (Record, bool) {
	return s.Get(RootKey)
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of every record.
func (s *Store) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.records))
	for k, r := range s.records {
		out[k] = copyRecord(r)
	}
	return out
}

// Publish normalizes data into the store under the root record.
func (s *Store) Publish(data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge(RootKey, data)
}

func (s *Store) merge(key string, fields map[string]interface{}) {
	r, ok := s.records[key]
	if !ok {
		r = Record{}
		s.records[key] = r
	}
	for name, value := range fields {
		r[name] = s.normalize(key+":"+name, value)
	}
}

// normalize replaces nested objects with references. path names objects that carry no id.
func (s *Store) normalize(path string, value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		key := dataID(v, path)
		s.merge(key, v)
		return Ref{Ref: key}
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = s.normalize(fmt.Sprintf("%s:%d", path, i), item)
		}
		return out
	default:
		return v
	}
}

// dataID is "<__typename>:<id>" when the object has both, the id alone without a typename
// and path when it has no id.
func dataID(obj map[string]interface{}, path string) string {
	id, ok := obj["id"]
	if !ok || id == nil {
		return path
	}
	if typename, ok := obj["__typename"].(string); ok && typename != "" {
		return fmt.Sprintf("%s:%v", typename, id)
	}
	return fmt.Sprint(id)
}
