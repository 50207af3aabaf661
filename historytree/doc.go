// Package historytree maintains the chain history tree: one Merkle Mountain
// Range per network upgrade whose leaves summarize the blocks of that
// upgrade, and whose interior nodes summarize their subtrees (heights, times,
// targets, total work, note commitment tree roots and shielded transaction
// counts).
//
// A Tree only ever holds the current peaks. Every node produced while a
// block is pushed is handed back to the caller as an Entry, at its mmr index,
// so it can be persisted. A Tree can be rebuilt from persisted peaks with
// FromCache and continues exactly as the tree it was cached from.
package historytree
