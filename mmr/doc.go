// Package mmr implements the index arithmetic and append rule of a Merkle
// Mountain Range whose nodes are stored as a flat, zero based, post order
// sequence.
//
// # Post order storage
//
// Children are stored before their parent and siblings left to right, so for
// the seven node tree
//
//	      6
//	   2     5
//	  0 1   3 4
//
// the append order and the storage order are the same: 0, 1, 2, 3, 4, 5, 6.
// Appending a leaf can complete one or more perfect trees to its left. Each
// completed tree adds its parent immediately after the leaf, so a single
// append writes the leaf plus zero or more interior nodes, and every index is
// written exactly once.
//
// # Heights and peaks
//
// Working with one based positions, the left most node of each height has a
// position that is all binary ones (1, 3, 7, 15, ...). Any other position can
// be moved onto the equivalent node of the left most perfect tree by
// subtracting its most significant bit less one, and repeating until the
// value is all ones. The height is then the bit length less one. See
// [PosHeight].
//
// The peaks of an MMR are determined by its size alone: the highest peak is
// the largest all-ones position that fits, the remaining peaks are found by
// jumping to the right sibling and descending to the left child until the
// position is inside the MMR. See [Peaks]. Peaks are sufficient to continue
// appending, and to compute the root, without any other node of the tree.
//
// # Burden of knowledge
//
// The primitives do not validate their inputs beyond what is cheap to check.
// Asking for the sibling of a node that has none gives a meaningless answer.
// [AddLeaf] and [BagPeaks] are the safe entry points.
package mmr
