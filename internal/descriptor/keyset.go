package descriptor

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/scylladb/go-set/strset"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/roach88/populate/internal/memberpath"
)

// Populate key sentinels.
const (
	// KeyAll selects the whole metadata graph.
	KeyAll = "#"
	// KeyRoot selects the root record's direct fields.
	KeyRoot = "*"
)

// PopulateKeySet is a case-insensitive set of populate keys:
//
//	orders*          the orders relation and its direct fields
//	orders.items     field selection "items" on orders (and implicitly orders*)
//	orders.2*        everything up to two levels below orders
//	2*               everything up to two levels below the root
//	*                the root record's direct fields
//	#                everything
//
// Keys are stored case-folded. The zero value is an empty set.
type PopulateKeySet struct {
	set *strset.Set
}

// NewKeySet builds a set from keys, dropping empty ones.
func NewKeySet(keys ...string) PopulateKeySet {
	s := PopulateKeySet{set: strset.New()}
	s.Add(keys...)
	return s
}

// DefaultKeySet is the set used when a request names no populate keys.
func DefaultKeySet() PopulateKeySet {
	return NewKeySet(KeyRoot)
}

// Add inserts keys. Adding a key twice is a no-op.
func (s *PopulateKeySet) Add(keys ...string) {
	if s.set == nil {
		s.set = strset.New()
	}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		s.set.Add(memberpath.Fold(k))
	}
}

// Has reports whether key is present, ignoring case.
func (s PopulateKeySet) Has(key string) bool {
	return s.set != nil && s.set.Has(memberpath.Fold(key))
}

// Len returns the number of keys.
func (s PopulateKeySet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Size()
}

// Keys returns the folded keys in sorted order.
func (s PopulateKeySet) Keys() []string {
	if s.set == nil {
		return []string{}
	}
	keys := s.set.List()
	sort.Strings(keys)
	return keys
}

// Equal reports whether both sets hold the same keys.
func (s PopulateKeySet) Equal(other PopulateKeySet) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.Len() == 0 {
		return true
	}
	return s.set.IsEqual(other.set)
}

// Union returns a new set holding the keys of both.
func (s PopulateKeySet) Union(other PopulateKeySet) PopulateKeySet {
	out := NewKeySet(s.Keys()...)
	out.Add(other.Keys()...)
	return out
}

// String joins the sorted keys with commas.
func (s PopulateKeySet) String() string {
	return strings.Join(s.Keys(), ",")
}

// MarshalJSON encodes the set as a sorted list.
func (s PopulateKeySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

// UnmarshalJSON decodes a list of keys.
func (s *PopulateKeySet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewKeySet(keys...)
	return nil
}

// MarshalYAML encodes the set as a sorted list.
func (s PopulateKeySet) MarshalYAML() (any, error) {
	return s.Keys(), nil
}

// UnmarshalYAML decodes a list of keys.
func (s *PopulateKeySet) UnmarshalYAML(node *yaml.Node) error {
	var keys []string
	if err := node.Decode(&keys); err != nil {
		return err
	}
	*s = NewKeySet(keys...)
	return nil
}

// EncodeMsgpack encodes the set as a sorted list.
func (s PopulateKeySet) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(s.Keys())
}

// DecodeMsgpack decodes a list of keys.
func (s *PopulateKeySet) DecodeMsgpack(dec *msgpack.Decoder) error {
	var keys []string
	if err := dec.Decode(&keys); err != nil {
		return err
	}
	*s = NewKeySet(keys...)
	return nil
}
