package finalizedstate

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/historytree"
)

// WriteBatch stages writes for a single atomic commit with DB.WriteBatch.
//
// Staging never fails outright. The first error is remembered, later writes
// are ignored, and the commit is refused.
type WriteBatch struct {
	db    *DB
	batch leveldb.Batch
	err   error
}

// Len is the number of puts and deletes staged.
func (b *WriteBatch) Len() int {
	return b.batch.Len()
}

// Err returns the first staging error.
func (b *WriteBatch) Err() error {
	return b.err
}

// PutBlock stages block at its own height.
func (b *WriteBatch) PutBlock(block chain.Block) {
	b.put(heightKey(tagBlock, block.Height), block)
}

// PutSaplingRoot stages the sapling note commitment tree root as of h.
func (b *WriteBatch) PutSaplingRoot(h chain.Height, root chain.Root) {
	if b.err == nil {
		b.batch.Put(heightKey(tagSaplingRoot, h), root[:])
	}
}

// PutOrchardRoot stages the orchard note commitment tree root as of h. Blocks
// before Nu5 have none.
func (b *WriteBatch) PutOrchardRoot(h chain.Height, root chain.Root) {
	if b.err == nil {
		b.batch.Put(heightKey(tagOrchardRoot, h), root[:])
	}
}

// PutTipHeight records h as the finalized tip.
func (b *WriteBatch) PutTipHeight(h chain.Height) {
	if b.err == nil {
		b.batch.Put([]byte{tagTipHeight}, binary.BigEndian.AppendUint32(nil, uint32(h)))
	}
}

// PutHistoryTree replaces the tip history tree. A nil tree deletes it.
func (b *WriteBatch) PutHistoryTree(t *historytree.Tree) {
	if t == nil {
		if b.err == nil {
			b.batch.Delete([]byte{tagHistoryTree})
		}
		return
	}
	stored := storedTree{Upgrade: t.Upgrade(), Size: t.Size(), Height: t.CurrentHeight()}
	for _, p := range t.Peaks() {
		stored.Peaks = append(stored.Peaks, storedEntry{Index: p.Index, Data: p.Data, Hash: p.Hash})
	}
	b.put([]byte{tagHistoryTree}, stored)
}

// PutHistoryNode stages the history node e at key.
func (b *WriteBatch) PutHistoryNode(key HistoryNodeKey, e historytree.Entry) {
	k, err := key.MarshalBinary()
	if err != nil {
		b.fail(err)
		return
	}
	b.put(k, storedNode{Data: e.Data, Hash: e.Hash})
}

// DeleteHistoryNode stages the deletion of the history node at key.
func (b *WriteBatch) DeleteHistoryNode(key HistoryNodeKey) {
	k, err := key.MarshalBinary()
	if err != nil {
		b.fail(err)
		return
	}
	if b.err == nil {
		b.batch.Delete(k)
	}
}

// ClearHistoryNodes stages the deletion of every history node of every
// upgrade currently in the database.
func (b *WriteBatch) ClearHistoryNodes() {
	if b.err != nil {
		return
	}
	iter := b.db.db.NewIterator(util.BytesPrefix([]byte{tagHistoryNode}), nil)
	defer iter.Release()
	for iter.Next() {
		// the batch keeps its own copy of the key
		b.batch.Delete(iter.Key())
	}
	if err := iter.Error(); err != nil {
		b.fail(err)
	}
}

func (b *WriteBatch) PutFormatVersion(v FormatVersion) {
	b.put([]byte{tagFormatVersion}, v)
}

func (b *WriteBatch) put(key []byte, value any) {
	if b.err != nil {
		return
	}
	data, err := b.db.codec.MarshalCBOR(value)
	if err != nil {
		b.fail(fmt.Errorf("%w: %x: %v", ErrMalformedRecord, key, err))
		return
	}
	b.batch.Put(key, data)
}

func (b *WriteBatch) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
