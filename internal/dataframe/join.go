package dataframe

import (
	xxhash "github.com/cespare/xxhash/v2"

	dferrors "github.com/paveg/filmdash/internal/errors"
)

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// Default suffixes applied to non-key columns present on both sides.
const (
	DefaultLeftSuffix  = "_x"
	DefaultRightSuffix = "_y"
)

// JoinOptions specifies parameters for join operations
type JoinOptions struct {
	Type        JoinType
	Key         string // Join key present in both DataFrames
	LeftSuffix  string // Suffix for colliding left columns (default "_x")
	RightSuffix string // Suffix for colliding right columns (default "_y")
}

// Join joins df with right on a single string-formatted key.
//
// Result columns are df's columns followed by right's non-key columns.
// Non-key names present on both sides get LeftSuffix / RightSuffix. Rows
// keep df's order; a left row matching several right rows repeats once per
// match in right's order. With LeftJoin, unmatched left rows get nulls on
// the right side. Null keys never match.
func (df *DataFrame) Join(right *DataFrame, options *JoinOptions) (*DataFrame, error) {
	if options == nil || options.Key == "" {
		return nil, dferrors.NewInvalidInputError("Join", "join key is required")
	}
	key := options.Key
	leftKey, ok := df.Column(key)
	if !ok {
		return nil, dferrors.NewColumnNotFoundError("Join", key)
	}
	rightKey, ok := right.Column(key)
	if !ok {
		return nil, dferrors.NewColumnNotFoundError("Join", key)
	}

	leftSuffix, rightSuffix := options.LeftSuffix, options.RightSuffix
	if leftSuffix == "" {
		leftSuffix = DefaultLeftSuffix
	}
	if rightSuffix == "" {
		rightSuffix = DefaultRightSuffix
	}

	index := newKeyIndex(right.Len())
	for i := 0; i < rightKey.Len(); i++ {
		if !rightKey.IsNull(i) {
			index.Put(rightKey.GetAsString(i), i)
		}
	}

	leftRows := make([]int, 0, df.Len())
	rightRows := make([]int, 0, df.Len())
	for i := 0; i < leftKey.Len(); i++ {
		var matches []int
		if !leftKey.IsNull(i) {
			matches = index.Get(leftKey.GetAsString(i))
		}
		if len(matches) == 0 {
			if options.Type == LeftJoin {
				leftRows = append(leftRows, i)
				rightRows = append(rightRows, -1)
			}
			continue
		}
		for _, j := range matches {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	leftTaken := df.Take(leftRows)
	defer leftTaken.Release()
	rightRest := right.Drop(key)
	defer rightRest.Release()
	rightTaken := rightRest.Take(rightRows)
	defer rightTaken.Release()

	result := make([]ISeries, 0, leftTaken.Width()+rightTaken.Width())
	for _, name := range leftTaken.order {
		target := name
		if name != key && rightTaken.HasColumn(name) {
			target = name + leftSuffix
		}
		result = append(result, share(target, leftTaken.columns[name]))
	}
	for _, name := range rightTaken.order {
		target := name
		if df.HasColumn(name) {
			target = name + rightSuffix
		}
		result = append(result, share(target, rightTaken.columns[name]))
	}

	return New(result...), nil
}

// keyIndex maps string keys to row positions, bucketed by xxhash.
type keyIndex struct {
	buckets map[uint64][]keyEntry
}

type keyEntry struct {
	key  string
	rows []int
}

func newKeyIndex(estimatedSize int) *keyIndex {
	return &keyIndex{buckets: make(map[uint64][]keyEntry, estimatedSize)}
}

// Put appends row to the positions recorded for key.
func (ki *keyIndex) Put(key string, row int) {
	hash := xxhash.Sum64String(key)
	bucket := ki.buckets[hash]
	for i := range bucket {
		if bucket[i].key == key {
			bucket[i].rows = append(bucket[i].rows, row)
			return
		}
	}
	ki.buckets[hash] = append(bucket, keyEntry{key: key, rows: []int{row}})
}

// Get returns the positions recorded for key in insertion order.
func (ki *keyIndex) Get(key string) []int {
	for _, entry := range ki.buckets[xxhash.Sum64String(key)] {
		if entry.key == key {
			return entry.rows
		}
	}
	return nil
}
