package biometrics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

// KnownEmbeddings is an insertion-ordered map of user name to descriptor.
// Iteration order decides which user wins under the first-match policy.
type KnownEmbeddings struct {
	names       []string
	descriptors []domain.Descriptor
	index       map[string]int
}

// NewKnownEmbeddings returns an empty map.
func NewKnownEmbeddings() *KnownEmbeddings {
	return &KnownEmbeddings{index: make(map[string]int)}
}

// KnownEmbeddingsFromUsers keeps the order of users.
func KnownEmbeddingsFromUsers(users []domain.User) *KnownEmbeddings {
	k := NewKnownEmbeddings()
	for _, u := range users {
		k.Set(u.Name, u.Embedding)
	}
	return k
}

// Set adds a user. Re-setting an existing name replaces its descriptor and
// keeps its original position.
func (k *KnownEmbeddings) Set(name string, d domain.Descriptor) {
	if i, ok := k.index[name]; ok {
		k.descriptors[i] = d
		return
	}
	k.index[name] = len(k.names)
	k.names = append(k.names, name)
	k.descriptors = append(k.descriptors, d)
}

func (k *KnownEmbeddings) Len() int {
	if k == nil {
		return 0
	}
	return len(k.names)
}

// Names returns the user names in iteration order.
func (k *KnownEmbeddings) Names() []string {
	return append([]string(nil), k.names...)
}

// Each calls fn in insertion order until it returns false.
func (k *KnownEmbeddings) Each(fn func(name string, d domain.Descriptor) bool) {
	for i, name := range k.names {
		if !fn(name, k.descriptors[i]) {
			return
		}
	}
}

// MarshalJSON writes a JSON object whose keys keep insertion order.
func (k *KnownEmbeddings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range k.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(k.descriptors[i].Slice())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the same document as ParseKnownEmbeddings.
func (k *KnownEmbeddings) UnmarshalJSON(data []byte) error {
	parsed, err := ParseKnownEmbeddings(data)
	if err != nil {
		return err
	}
	*k = *parsed
	return nil
}

// ParseKnownEmbeddings reads a JSON object of name to 128-number array,
// preserving document order.
func ParseKnownEmbeddings(data []byte) (*KnownEmbeddings, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("known face embeddings: invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("known face embeddings: expected a JSON object")
	}

	known := NewKnownEmbeddings()
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			parseErr = fmt.Errorf("known face embeddings: %q is not an array", key.String())
			return false
		}

		items := value.Array()
		values := make([]float64, 0, len(items))
		for _, item := range items {
			if item.Type != gjson.Number {
				parseErr = fmt.Errorf("known face embeddings: %q contains a non-numeric value", key.String())
				return false
			}
			values = append(values, item.Float())
		}

		d, err := domain.NewDescriptor(values)
		if err != nil {
			parseErr = fmt.Errorf("known face embeddings: %q: %w", key.String(), err)
			return false
		}
		known.Set(key.String(), d)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return known, nil
}
