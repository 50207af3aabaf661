// Package upgrade is the disk format upgrade that back fills the history
// tree nodes of every network upgrade from the finalized blocks, and the
// check that the nodes it wrote reproduce the trusted roots.
//
// Run and Check are long running. Both poll a cancel channel between blocks
// and stop without committing partial work for the current upgrade when it
// is signalled. Work already committed for earlier upgrades is discarded by
// the next Run, which always starts by clearing every history node.
//
// Failures to read the finalized state, to rebuild a tree, or to commit are
// CorruptionErrors. A node can not continue on a corrupt state, and the
// Driver panics on them.
package upgrade
