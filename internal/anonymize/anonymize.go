// Package anonymize obscures identifying columns before data leaves the
// analysis environment: identifiers are replaced by salted hashes and
// timestamps are shifted by a random per-row offset.
package anonymize

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"tiva/domain/core"
	"tiva/internal/dataset"
)

// DefaultSliceSize keeps the whole rehashed digest.
const DefaultSliceSize = 200

// HashFunc replaces a value's string form.
type HashFunc func(string) string

// OffsetFunc returns the offset applied to one row.
type OffsetFunc func() time.Duration

// Anonymizer holds the random source used for salts and offsets.
type Anonymizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an Anonymizer seeded with seed.
func New(seed int64) *Anonymizer {
	return &Anonymizer{rng: rand.New(rand.NewSource(seed))}
}

// NewRandom returns an Anonymizer seeded from the clock.
func NewRandom() *Anonymizer { return New(time.Now().UnixNano()) }

func (a *Anonymizer) intn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

// HashAndSlash hashes v, salts the digest with a random slice of itself,
// rehashes and returns up to size characters from a random offset. The
// result cannot be recomputed from v alone.
func (a *Anonymizer) HashAndSlash(v interface{}, size int) string {
	hashed := core.SumValue(v).String()
	doubled := hashed + hashed

	saltStart := a.intn(256)
	saltEnd := saltStart + a.intn(256)
	salt := substr(doubled, saltStart, saltEnd)

	rehashed := core.Sum([]byte(salt + hashed)).String()
	offset := a.intn(56)
	return substr(rehashed, offset, offset+size)
}

// HashColumns replaces every value of each listed column by fn of its string
// form. Equal values get equal replacements within a call. Columns not in ds
// are ignored. A nil fn uses HashAndSlash with DefaultSliceSize.
func (a *Anonymizer) HashColumns(ds *dataset.DataSet, columns []string, fn HashFunc) (*dataset.DataSet, error) {
	if fn == nil {
		fn = func(s string) string { return a.HashAndSlash(s, DefaultSliceSize) }
	}
	out := ds
	for _, c := range columns {
		if !out.HasColumn(c) {
			continue
		}
		mapping := make(map[string]string)
		src := out.Column(c)
		values := make([]interface{}, len(src))
		for i, v := range src {
			s := dataset.CoerceString(v)
			h, ok := mapping[s]
			if !ok {
				h = fn(s)
				mapping[s] = h
			}
			values[i] = h
		}
		next, err := out.WithColumn(c, values)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// RandomOffset returns an OffsetFunc drawing whole units uniformly from
// [lo, hi].
func (a *Anonymizer) RandomOffset(lo, hi int, unit time.Duration) OffsetFunc {
	return func() time.Duration {
		return time.Duration(lo+a.intn(hi-lo+1)) * unit
	}
}

// DefaultOffset draws up to a million seconds either way.
func (a *Anonymizer) DefaultOffset() OffsetFunc {
	return a.RandomOffset(-1000000, 1000000, time.Second)
}

// OffsetColumns shifts the timestamps of every listed column by one offset
// per row, so intervals within a row keep their length. A nil fn uses
// DefaultOffset.
func (a *Anonymizer) OffsetColumns(ds *dataset.DataSet, columns []string, fn OffsetFunc) (*dataset.DataSet, error) {
	if fn == nil {
		fn = a.DefaultOffset()
	}
	cols := make([][]time.Time, len(columns))
	for j, c := range columns {
		ts, err := ds.Times(c)
		if err != nil {
			return nil, fmt.Errorf("offset column %q: %w", c, err)
		}
		cols[j] = ts
	}
	shifted := make([][]interface{}, len(columns))
	for j := range shifted {
		shifted[j] = make([]interface{}, ds.Len())
	}
	for i := 0; i < ds.Len(); i++ {
		offset := fn()
		for j := range columns {
			if cols[j][i].IsZero() {
				continue
			}
			shifted[j][i] = cols[j][i].Add(offset)
		}
	}
	out := ds
	for j, c := range columns {
		next, err := out.WithColumn(c, shifted[j])
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func substr(s string, from, to int) string {
	if from > len(s) {
		from = len(s)
	}
	if to > len(s) {
		to = len(s)
	}
	if to < from {
		return ""
	}
	return s[from:to]
}
