package upgrade

import (
	"errors"

	"github.com/Metalcape/zebra-flyclient/finalizedstate"
)

// HistoryNodesFormat is the first disk format with history nodes.
var HistoryNodesFormat = finalizedstate.FormatVersion{Major: 27, Minor: 0, Patch: 0}

// Driver applies the history nodes format change to a finalized state that
// predates it.
type Driver struct {
	opts Options
}

// NewDriver returns a Driver whose passes share opts.
func NewDriver(opts ...Option) *Driver {
	return &Driver{opts: newOptions(opts)}
}

// passOptions hands the driver's logger and metrics to each pass, so the
// metrics are registered only once.
func (d *Driver) passOptions() []Option {
	return []Option{
		WithLogger(d.opts.log),
		WithMetrics(d.opts.metrics),
		WithProgressInterval(d.opts.progressInterval),
	}
}

// Apply runs then checks the format change when the stored format is older
// than HistoryNodesFormat, and records the new format when the check passes.
//
// It returns nil when the state is, or now is, up to date. It returns
// ErrCancelled when cancelled and the failed check result when the written
// nodes do not verify. In both cases the format is left unchanged so the
// change is retried on the next start. Corruption panics.
func (d *Driver) Apply(db VersionedState, cancel <-chan CancelFormatChange) error {
	log := d.opts.log

	version, ok, err := db.FormatVersion()
	if err != nil {
		d.abort(corruption("read the disk format version", 0, err))
	}
	if ok && !version.Less(HistoryNodesFormat) {
		log.Infof("disk format %s already has history nodes", version)
		return nil
	}

	tip, ok, err := db.TipHeight()
	if err != nil {
		d.abort(corruption("read the tip height", 0, err))
	}
	if !ok {
		log.Infof("empty finalized state, marking it as format %s", HistoryNodesFormat)
		d.writeVersion(db)
		return nil
	}

	log.Infof("upgrading disk format %s to %s at tip %d", version, HistoryNodesFormat, tip)

	err = NewRunner(d.passOptions()...).Run(tip, db, cancel)
	if errors.Is(err, ErrCancelled) {
		return err
	}
	if err != nil {
		d.abort(err)
	}

	verifyErr, err := NewVerifier(d.passOptions()...).Check(tip, db, cancel)
	if errors.Is(err, ErrCancelled) {
		return err
	}
	if err != nil {
		d.abort(err)
	}
	if verifyErr != nil {
		log.Errorf("history nodes failed the integrity check, format left at %s: %v", version, verifyErr)
		return verifyErr
	}

	d.writeVersion(db)
	log.Infof("disk format upgraded to %s", HistoryNodesFormat)
	return nil
}

func (d *Driver) writeVersion(db VersionedState) {
	batch := db.NewBatch()
	batch.PutFormatVersion(HistoryNodesFormat)
	if err := db.WriteBatch(batch); err != nil {
		d.abort(corruption("write the disk format version", 0, err))
	}
}

// abort stops the node, the finalized state can not be used
func (d *Driver) abort(err error) {
	d.opts.log.Errorf("history nodes format change failed: %v", err)
	panic(err)
}
