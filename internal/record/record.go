// Package record implements the LSNP wire codec: newline-separated
// key:value pairs terminated by a blank line. Keys are case-preserved and
// kept in insertion order so serialize(parse(x)) reproduces x; semantic
// equality between records ignores that order.
package record

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyRecord is returned by Parse when the input yields no fields.
var ErrEmptyRecord = errors.New("record: empty record")

// ErrNewlineInValue is returned by Serialize when a value contains LF,
// which the protocol forbids on the wire.
var ErrNewlineInValue = errors.New("record: value contains newline")

// Record is an ordered string-to-string mapping. At minimum a well-formed
// record carries a TYPE field.
type Record struct {
	keys   []string
	values map[string]string
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string]string)}
}

// Set assigns key to value, preserving the key's original insertion
// position if it already exists.
func (r *Record) Set(key, value string) *Record {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

// Get returns the value for key and whether it was present.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// GetOr returns the value for key, or def if absent.
func (r *Record) GetOr(key, def string) string {
	if v, ok := r.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Type returns the TYPE field, or "" if absent.
func (r *Record) Type() string {
	return r.GetOr("TYPE", "")
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by callers.
func (r *Record) Keys() []string {
	return r.keys
}

// Equal reports semantic equality: same key set, same values, order
// ignored.
func (r *Record) Equal(other *Record) bool {
	if other == nil || len(r.keys) != len(other.keys) {
		return false
	}
	for k, v := range r.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Parse splits bytes into a Record. Lines are split on the first ASCII LF;
// within a line, the key/value are split on the first ":" and the single
// conventional space after it is trimmed. Lines without a colon are
// skipped silently. The record is terminated by a blank line if one is
// present; trailing whitespace-only input after the last field is
// tolerated. An empty record (no fields at all) is a ParseError.
func Parse(data []byte) (*Record, error) {
	rec := New()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := line[:idx]
		value := line[idx+1:]
		value = strings.TrimPrefix(value, " ")
		rec.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "record: scan")
	}
	if len(rec.keys) == 0 {
		return nil, ErrEmptyRecord
	}
	return rec, nil
}

// Serialize renders a record as "key: value\n" lines terminated by a
// blank line. It rejects any value containing LF, since the protocol
// forbids embedding the record delimiter inside a value.
func Serialize(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, k := range r.keys {
		v := r.values[k]
		if strings.ContainsRune(v, '\n') {
			return nil, errors.Wrapf(ErrNewlineInValue, "key %q", k)
		}
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
