package mmr

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"testing"
)

// testDb keeps every node appended
type testDb struct {
	t     *testing.T
	store map[uint64][]byte
	next  uint64
}

func NewTestDb(t *testing.T) *testDb {
	return &testDb{t: t, store: make(map[uint64][]byte)}
}

func (db *testDb) Get(i uint64) ([]byte, error) {
	if value, ok := db.store[i]; ok {
		return value, nil
	}
	return nil, fmt.Errorf("index %d not found", i)
}

func (db *testDb) Append(value []byte) (uint64, error) {
	db.store[db.next] = value
	db.next++
	return db.next, nil
}

// peakDb keeps only the current peaks, and forgets everything else as soon as
// it is no longer a peak.
type peakDb struct {
	testDb
}

func NewPeakDb(t *testing.T) *peakDb {
	return &peakDb{testDb: *NewTestDb(t)}
}

func (db *peakDb) Append(value []byte) (uint64, error) {
	next, _ := db.testDb.Append(value)

	// the peaks are only well defined for complete sizes, during a back fill
	// the node just appended must also be retained.
	keep := map[uint64]bool{next - 1: true}
	for _, p := range Peaks(next) {
		keep[p] = true
	}
	if !IsValidSize(next) {
		for _, p := range Peaks(FirstValidSizeBelow(next)) {
			keep[p] = true
		}
	}
	for i := range db.store {
		if !keep[i] {
			delete(db.store, i)
		}
	}
	return next, nil
}

// FirstValidSizeBelow returns the largest valid mmr size <= size
func FirstValidSizeBelow(size uint64) uint64 {
	for !IsValidSize(size) {
		size--
	}
	return size
}

func hashNum(num uint64) []byte {
	hasher := sha256.New()
	b := [8]byte{}
	binary.BigEndian.PutUint64(b[:], num)
	hasher.Write(b[:])
	return hasher.Sum(nil)
}

func hashMerge(i uint64, left []byte, right []byte) ([]byte, error) {
	hasher := sha256.New()
	b := [8]byte{}
	binary.BigEndian.PutUint64(b[:], i+1)
	hasher.Write(b[:])
	hasher.Write(left)
	hasher.Write(right)
	return hasher.Sum(nil), nil
}

func hashBag(left []byte, right []byte) ([]byte, error) {
	hasher := sha256.New()
	hasher.Write(left)
	hasher.Write(right)
	return hasher.Sum(nil), nil
}
