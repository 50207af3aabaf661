package finalizedstate

import (
	"encoding/binary"
	"errors"
	"fmt"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

// DB is the finalized state of a single network. Blocks, note commitment
// tree roots and the tip history tree are written as the chain is finalized,
// history nodes are written by the disk format upgrade that back fills them.
type DB struct {
	log     logger.Logger
	db      *leveldb.DB
	network network.Network
	codec   dtcbor.CBORCodec
	opts    Options
}

type Options struct {
	network *network.Network
	sync    bool
}

type Option func(*Options)

// WithNetwork sets the network the database is for. A new database requires
// it, an existing one must have been created for the same network.
func WithNetwork(n network.Network) Option {
	return func(opts *Options) {
		opts.network = &n
	}
}

// WithSync makes every batch write wait for the data to reach stable storage.
func WithSync(sync bool) Option {
	return func(opts *Options) {
		opts.sync = sync
	}
}

// Open opens or creates the database at path. An empty path opens a new in
// memory database.
func Open(log logger.Logger, path string, opts ...Option) (*DB, error) {
	d := &DB{log: log}
	for _, o := range opts {
		o(&d.opts)
	}

	var err error
	if d.codec, err = NewCodec(); err != nil {
		return nil, err
	}

	if path == "" {
		d.db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		d.db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}

	if err = d.loadNetwork(); err != nil {
		d.db.Close()
		return nil, err
	}
	return d, nil
}

// loadNetwork reads the network record, writing it first for a new database
func (d *DB) loadNetwork() error {
	var stored storedNetwork
	err := d.get([]byte{tagNetwork}, &stored)
	if errors.Is(err, ErrNotFound) {
		if d.opts.network == nil {
			return fmt.Errorf("%w: network, and no network was configured", ErrNotFound)
		}
		d.network = *d.opts.network
		data, err := d.codec.MarshalCBOR(newStoredNetwork(d.network))
		if err != nil {
			return err
		}
		d.log.Infof("new %s finalized state", d.network)
		return d.db.Put([]byte{tagNetwork}, data, &opt.WriteOptions{Sync: d.opts.sync})
	}
	if err != nil {
		return err
	}

	if d.network, err = stored.network(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if d.opts.network != nil && !d.opts.network.Equal(d.network) {
		return fmt.Errorf("%w: created for %s, opened for %s", ErrNetworkMismatch, d.network, d.opts.network)
	}
	return nil
}

// Close releases the database. Batches staged against it can no longer be
// committed.
func (d *DB) Close() error {
	return d.db.Close()
}

// Network is the network the state was opened for.
func (d *DB) Network() network.Network {
	return d.network
}

// Block returns the finalized block at height h.
func (d *DB) Block(h chain.Height) (chain.Block, error) {
	var b chain.Block
	if err := d.get(heightKey(tagBlock, h), &b); err != nil {
		return chain.Block{}, fmt.Errorf("block %d: %w", h, err)
	}
	return b, nil
}

// SaplingRoot returns the sapling note commitment tree root as of height h.
func (d *DB) SaplingRoot(h chain.Height) (chain.Root, error) {
	return d.root(tagSaplingRoot, h)
}

// OrchardRoot returns the orchard note commitment tree root as of height h.
// Before Nu5 there is no orchard tree and the zero root is returned when
// nothing was recorded.
func (d *DB) OrchardRoot(h chain.Height) (chain.Root, error) {
	root, err := d.root(tagOrchardRoot, h)
	if errors.Is(err, ErrNotFound) && !d.network.UpgradeAt(h).HasOrchard() {
		return chain.Root{}, nil
	}
	return root, err
}

func (d *DB) root(tag byte, h chain.Height) (chain.Root, error) {
	var root chain.Root
	value, err := d.db.Get(heightKey(tag, h), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return root, fmt.Errorf("%w: root %02x at %d", ErrNotFound, tag, h)
	}
	if err != nil {
		return root, err
	}
	if len(value) != len(root) {
		return root, fmt.Errorf("%w: root %02x at %d has %d bytes", ErrMalformedRecord, tag, h, len(value))
	}
	copy(root[:], value)
	return root, nil
}

// TipHeight returns the height of the finalized tip, false for an empty
// chain.
func (d *DB) TipHeight() (chain.Height, bool, error) {
	value, err := d.db.Get([]byte{tagTipHeight}, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(value) != 4 {
		return 0, false, fmt.Errorf("%w: tip height has %d bytes", ErrMalformedRecord, len(value))
	}
	return chain.Height(binary.BigEndian.Uint32(value)), true, nil
}

// HistoryTree returns the history tree as of the finalized tip. It is nil
// when the tip is before Heartwood.
func (d *DB) HistoryTree() (*historytree.Tree, error) {
	var stored storedTree
	err := d.get([]byte{tagHistoryTree}, &stored)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	peaks := make([]historytree.Entry, 0, len(stored.Peaks))
	for _, p := range stored.Peaks {
		peaks = append(peaks, historytree.Entry{Index: p.Index, Data: p.Data, Hash: p.Hash})
	}
	tree, err := historytree.FromCache(d.network, stored.Upgrade, stored.Size, peaks, stored.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: history tree: %w", ErrMalformedRecord, err)
	}
	return tree, nil
}

// HistoryNode returns the stored history node at key.
func (d *DB) HistoryNode(key HistoryNodeKey) (historytree.Entry, error) {
	k, err := key.MarshalBinary()
	if err != nil {
		return historytree.Entry{}, err
	}
	var stored storedNode
	if err = d.get(k, &stored); err != nil {
		return historytree.Entry{}, fmt.Errorf("history node %s: %w", key, err)
	}
	return historytree.Entry{Index: key.Index, Data: stored.Data, Hash: stored.Hash}, nil
}

// HistoryNodes returns every stored history node of upgrade u in index
// order.
func (d *DB) HistoryNodes(u network.Upgrade) ([]historytree.Entry, error) {
	prefix, err := historyNodePrefix(u)
	if err != nil {
		return nil, err
	}

	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var entries []historytree.Entry
	for iter.Next() {
		key, err := ParseHistoryNodeKey(iter.Key())
		if err != nil {
			return nil, err
		}
		var stored storedNode
		if err = d.codec.UnmarshalInto(iter.Value(), &stored); err != nil {
			return nil, fmt.Errorf("%w: history node %s: %v", ErrMalformedRecord, key, err)
		}
		entries = append(entries, historytree.Entry{Index: key.Index, Data: stored.Data, Hash: stored.Hash})
	}
	return entries, iter.Error()
}

// HistoryNodeCounts returns the number of stored history nodes per upgrade.
// Upgrades with none are absent.
func (d *DB) HistoryNodeCounts() (map[network.Upgrade]uint64, error) {
	iter := d.db.NewIterator(util.BytesPrefix([]byte{tagHistoryNode}), nil)
	defer iter.Release()

	counts := map[network.Upgrade]uint64{}
	for iter.Next() {
		key, err := ParseHistoryNodeKey(iter.Key())
		if err != nil {
			return nil, err
		}
		counts[key.Upgrade]++
	}
	return counts, iter.Error()
}

// FormatVersion returns the stored disk format version, false when none was
// ever written.
func (d *DB) FormatVersion() (FormatVersion, bool, error) {
	var v FormatVersion
	err := d.get([]byte{tagFormatVersion}, &v)
	if errors.Is(err, ErrNotFound) {
		return FormatVersion{}, false, nil
	}
	if err != nil {
		return FormatVersion{}, false, err
	}
	return v, true, nil
}

// NewBatch returns an empty batch for this database.
func (d *DB) NewBatch() *WriteBatch {
	return &WriteBatch{db: d}
}

// WriteBatch commits every write staged in b atomically. Nothing is written
// if staging any of them failed.
func (d *DB) WriteBatch(b *WriteBatch) error {
	if b.err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, b.err)
	}
	if err := d.db.Write(&b.batch, &opt.WriteOptions{Sync: d.opts.sync}); err != nil {
		return err
	}
	d.log.Debugf("committed batch of %d records", b.batch.Len())
	return nil
}

// get decodes the record at key into value
func (d *DB) get(key []byte, value any) error {
	data, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("%w: %x", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	if err = d.codec.UnmarshalInto(data, value); err != nil {
		return fmt.Errorf("%w: %x: %v", ErrMalformedRecord, key, err)
	}
	return nil
}
