package digest

import (
	"fmt"
	"math/bits"
)

// CompressionSlack is the amortization constant from the source design: a
// tree is only considered for compression once it holds at least
// CompressionSlack*K nodes, trading a little extra memory for O(1)
// amortized insert cost. The original implementation hardcodes this as a
// literal 6; it is exposed here as a package-level default rather than a
// per-call tunable, per the source design notes.
var CompressionSlack uint64 = 6

// Tree is a Q-Digest: a bounded-memory summary of an integer multiset over
// the universe [0, root.hi]. It is exclusively owned by one goroutine; no
// method is safe to call concurrently from multiple goroutines on the same
// Tree, matching the no-intra-process-concurrency constraint of the sketch.
type Tree struct {
	root     *node
	numNodes uint64
	total    uint64 // N_total: sum of all counts ever inserted
	k        uint64
}

// New creates an empty digest over the universe [0, universeHi] with
// compression parameter k. k must be a positive integer; universeHi is the
// largest key the digest can represent before an Insert triggers Expand.
func New(k uint64, universeHi uint64) *Tree {
	if k == 0 {
		panic("digest: K must be a positive integer")
	}
	return &Tree{
		root:     newNode(0, universeHi),
		numNodes: 1,
		k:        k,
	}
}

// K returns the digest's compression parameter.
func (t *Tree) K() uint64 { return t.k }

// Total returns N_total, the cumulative number of inserted elements.
func (t *Tree) Total() uint64 { return t.total }

// NumNodes returns the number of live (reachable) nodes in the structure.
func (t *Tree) NumNodes() uint64 { return t.numNodes }

// UniverseHi returns the inclusive upper bound of the digest's universe.
func (t *Tree) UniverseHi() uint64 { return t.root.hi }

// Empty reports whether the digest has never had anything inserted into it.
func (t *Tree) Empty() bool { return t.total == 0 }

// log2Ceil returns ceil(log2(n)), with the conventions log2Ceil(0) = 0 and
// log2Ceil(1) = 0.
func log2Ceil(n uint64) uint64 {
	if n <= 1 {
		return 0
	}
	return uint64(bits.Len64(n - 1))
}

// Insert attributes count occurrences of key to the digest, expanding the
// universe first if key exceeds the current upper bound. When tryCompress
// is true and the tree holds at least CompressionSlack*K nodes, compression
// runs after the insert completes.
func (t *Tree) Insert(key uint64, count uint64, tryCompress bool) {
	if key > t.root.hi {
		newUBPlusOne := uint64(1) << log2Ceil(key+1)
		if t.root.hi+1 == newUBPlusOne {
			// Avoid a degenerate one-step expansion: double again so
			// nearby future inserts don't immediately re-trigger expand.
			newUBPlusOne *= 2
		}
		t.expand(newUBPlusOne)
	}

	lo, hi := uint64(0), t.root.hi
	cur := t.root
	for lo != hi {
		mid := lo + (hi-lo)/2
		if key <= mid {
			if cur.left == nil {
				cur.left = newNode(lo, mid)
				cur.left.parent = cur
				t.numNodes++
			}
			cur = cur.left
			hi = mid
		} else {
			if cur.right == nil {
				cur.right = newNode(mid+1, hi)
				cur.right.parent = cur
				t.numNodes++
			}
			cur = cur.right
			lo = mid + 1
		}
	}
	cur.count += count
	t.total += count

	if tryCompress {
		t.compressIfNeeded()
	}
}

// expand grows the universe to [0, newUBExclusive-1], newUBExclusive being a
// power of two strictly greater than root.hi+1. The existing tree is
// grafted, unmodified, onto the left spine of the new, larger tree.
func (t *Tree) expand(newUBExclusive uint64) {
	if newUBExclusive&(newUBExclusive-1) != 0 {
		panic("digest: expand target must be a power of two")
	}
	newHi := newUBExclusive - 1
	if newHi <= t.root.hi {
		panic("digest: expand called with a target not larger than the current universe")
	}

	tmp := New(t.k, newHi)

	if t.total == 0 {
		// Nothing to graft: swap shells and discard the old (empty) root.
		oldRoot := t.root
		t.root, tmp.root = tmp.root, oldRoot
		release(oldRoot)
		return
	}

	oldRoot := t.root
	oldNumNodes := t.numNodes
	oldTotal := t.total

	// Insert a sentinel to build the left spine down to the node whose
	// interval equals the old root's interval.
	tmp.Insert(oldRoot.hi, 1, false)

	n := tmp.root
	for n.hi != oldRoot.hi {
		n = n.left
	}
	par := n.parent

	// Count the phantom right-subtree nodes that will be discarded.
	toRemove := uint64(0)
	for walk := n; walk != nil; walk = walk.right {
		toRemove++
	}

	phantom := par.left
	release(phantom)

	par.left = oldRoot
	oldRoot.parent = par

	tmp.numNodes = tmp.numNodes - toRemove + oldNumNodes
	tmp.total = oldTotal

	*t = *tmp
}

// compressIfNeeded triggers a full compression pass from the root once the
// tree holds at least CompressionSlack*K nodes; otherwise it is a no-op.
func (t *Tree) compressIfNeeded() {
	if t.numNodes < CompressionSlack*t.k {
		return
	}
	threshold := t.total / t.k
	depth := log2Ceil(t.root.hi + 1)
	t.compress(t.root, 0, depth, threshold)
}

// compress recursively, post-order, enforces the compression invariant:
// every non-root node's triple count must be >= threshold, or it must have
// been merged upward / deleted.
func (t *Tree) compress(n *node, level, lMax uint64, threshold uint64) {
	if n == nil {
		return
	}
	t.compress(n.left, level+1, lMax, threshold)
	t.compress(n.right, level+1, lMax, threshold)

	if level == 0 {
		return
	}

	if t.deleteIfEmptyLeaf(n) {
		return
	}

	par := n.parent
	if par != nil && par.tripleCount() < threshold {
		par.count = par.tripleCount()
		if par.left != nil {
			par.left.count = 0
			t.deleteIfEmptyLeaf(par.left)
		}
		if par.right != nil {
			par.right.count = 0
			t.deleteIfEmptyLeaf(par.right)
		}
	}
}

// deleteIfEmptyLeaf removes n from the tree if it is a zero-count leaf,
// returning whether it did so.
func (t *Tree) deleteIfEmptyLeaf(n *node) bool {
	if !n.isLeaf() || n.count != 0 {
		return false
	}
	if n.parent == nil {
		// The root is never deleted (compress skips level 0; this guard
		// keeps that true for any caller).
		return false
	}
	if n.parent.left == n {
		n.parent.left = nil
	} else {
		n.parent.right = nil
	}
	n.parent = nil
	t.numNodes--
	return true
}

// insertNode locates (creating intermediate ancestors as needed, by the
// same descent rules as Insert) the node in t whose interval equals
// [lo, hi], and adds count to its count and to t.total. The caller must
// ensure [lo, hi] lies within t's universe; expansion is never performed
// here.
func (t *Tree) insertNode(lo, hi, count uint64) {
	if lo < t.root.lo || hi > t.root.hi {
		panic("digest: insertNode interval outside universe")
	}
	curLo, curHi := t.root.lo, t.root.hi
	cur := t.root
	for curLo != lo || curHi != hi {
		mid := curLo + (curHi-curLo)/2
		if hi <= mid {
			if cur.left == nil {
				cur.left = newNode(curLo, mid)
				cur.left.parent = cur
				t.numNodes++
			}
			cur = cur.left
			curHi = mid
		} else {
			if cur.right == nil {
				cur.right = newNode(mid+1, curHi)
				cur.right.parent = cur
				t.numNodes++
			}
			cur = cur.right
			curLo = mid + 1
		}
	}
	cur.count += count
	t.total += count
}

// Merge folds src into dst without modifying src. Both trees' live nodes
// are visited in breadth-first order and replayed into a fresh, correctly
// sized tmp tree, which gets one compressIfNeeded pass (compressing only
// at CompressionSlack*K nodes or more) and is then swapped into dst.
func Merge(dst, src *Tree) {
	k := dst.k
	if src.k > k {
		k = src.k
	}
	universe := dst.root.hi
	if src.root.hi > universe {
		universe = src.root.hi
	}

	tmp := New(k, universe)

	for _, src := range []*Tree{dst, src} {
		q := &nodeQueue{}
		q.push(src.root)
		for q.len > 0 {
			cur := q.pop()
			if cur.count > 0 {
				tmp.insertNode(cur.lo, cur.hi, cur.count)
			}
			if cur.left != nil {
				q.push(cur.left)
			}
			if cur.right != nil {
				q.push(cur.right)
			}
		}
	}

	tmp.compressIfNeeded()
	*dst = *tmp
}

// Percentile returns the value v such that approximately p*N_total stream
// elements are <= v, within an additive error of N_total/K. It panics if
// the digest is empty — callers must check Empty() first, per spec.
func (t *Tree) Percentile(p float64) uint64 {
	if t.total == 0 {
		panic("digest: percentile query on an empty digest")
	}
	if p < 0 || p > 1 {
		panic("digest: percentile p must be within [0, 1]")
	}
	reqRank := uint64(p * float64(t.total))
	var curRank uint64
	v, ok := postorderByRank(t.root, &curRank, reqRank)
	if !ok {
		// reqRank exceeds the total mass accumulated by the traversal
		// (can only happen for p very close to 1 due to float rounding);
		// the rightmost value is the correct upper bound.
		return t.root.hi
	}
	return v
}

// postorderByRank performs a left/right/self traversal accumulating counts,
// returning the hi bound of the first node whose cumulative count reaches
// or exceeds reqRank. This order visits nodes by non-decreasing hi, so the
// result never decreases as reqRank grows. hi, not lo or mid, is the
// canonical Q-Digest convention for matching the approximation bound.
func postorderByRank(n *node, curRank *uint64, reqRank uint64) (uint64, bool) {
	if n == nil {
		return 0, false
	}
	if v, ok := postorderByRank(n.left, curRank, reqRank); ok {
		return v, true
	}
	if v, ok := postorderByRank(n.right, curRank, reqRank); ok {
		return v, true
	}
	*curRank += n.count
	if *curRank >= reqRank {
		return n.hi, true
	}
	return 0, false
}

// String renders a short debug summary of the digest, in the spirit of the
// teacher's Str() debug helpers.
func (t *Tree) String() string {
	return fmt.Sprintf("digest{k=%d universe=[0,%d] nodes=%d total=%d}",
		t.k, t.root.hi, t.numNodes, t.total)
}
