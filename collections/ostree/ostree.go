// Package ostree provides an order-statistic tree: a red-black tree whose
// nodes carry subtree sizes, supporting insert, delete, k-th smallest
// selection and rank queries in O(log n).
//
// Keys are (value, seq) pairs. The strictly increasing seq disambiguates
// duplicate values, so deleting a specific occurrence is deterministic and
// subtree sizes never need per-node duplicate counts. All nodes live in an
// arena allocated at construction; insert and delete recycle arena slots
// through a free list and never allocate.
package ostree

import (
	"github.com/eluv-io/errors-go"
)

// nilIdx is the arena slot of the shared sentinel leaf. The sentinel is
// black with size 0 and stands in for every nil child and the root's parent.
const nilIdx = int32(0)

type node struct {
	value  float64
	seq    uint64
	left   int32
	right  int32
	parent int32
	size   int32 // number of nodes in the subtree rooted here
	red    bool
}

// Tree is an order-statistic red-black tree of (value, seq) keys with a
// fixed maximum size.
type Tree struct {
	nodes []node // nodes[0] is the sentinel
	root  int32
	free  int32 // head of the free list, chained through node.right
	count int
}

// New creates a tree with capacity for the given number of keys.
func New(capacity int) (*Tree, error) {
	if capacity < 1 {
		return nil, errors.E("ostree.New", errors.K.Invalid,
			"reason", "capacity must be positive",
			"capacity", capacity)
	}
	t := &Tree{
		nodes: make([]node, capacity+1),
		root:  nilIdx,
	}
	t.rebuildFreeList()
	return t, nil
}

// Len returns the number of keys in the tree.
func (t *Tree) Len() int {
	return t.count
}

// Cap returns the maximum number of keys the tree can hold.
func (t *Tree) Cap() int {
	return len(t.nodes) - 1
}

// Clear removes all keys. Arena slots are recycled; nothing is freed.
func (t *Tree) Clear() {
	t.root = nilIdx
	t.count = 0
	t.nodes[nilIdx] = node{}
	t.rebuildFreeList()
}

func (t *Tree) rebuildFreeList() {
	t.free = nilIdx
	for i := int32(len(t.nodes) - 1); i >= 1; i-- {
		t.nodes[i].right = t.free
		t.free = i
	}
}

// less orders keys by (value, seq).
func less(aVal float64, aSeq uint64, bVal float64, bSeq uint64) bool {
	if aVal != bVal {
		return aVal < bVal
	}
	return aSeq < bSeq
}

// Insert adds the key (value, seq). It fails if the tree is at capacity or
// the exact key is already present.
func (t *Tree) Insert(value float64, seq uint64) error {
	e := errors.Template("ostree.Insert", errors.K.Invalid, "value", value, "seq", seq)
	if t.free == nilIdx {
		return e("reason", "tree at capacity", "capacity", t.Cap())
	}

	// descend, bumping subtree sizes along the insertion path
	y := nilIdx
	x := t.root
	goLeft := false
	for x != nilIdx {
		if value == t.nodes[x].value && seq == t.nodes[x].seq {
			// roll back the size bumps made on the way down
			for p := y; p != nilIdx; p = t.nodes[p].parent {
				t.nodes[p].size--
			}
			return e("reason", "duplicate key")
		}
		y = x
		t.nodes[x].size++
		goLeft = less(value, seq, t.nodes[x].value, t.nodes[x].seq)
		if goLeft {
			x = t.nodes[x].left
		} else {
			x = t.nodes[x].right
		}
	}

	z := t.free
	t.free = t.nodes[z].right
	t.nodes[z] = node{value: value, seq: seq, left: nilIdx, right: nilIdx, parent: y, size: 1, red: true}

	if y == nilIdx {
		t.root = z
	} else if goLeft {
		t.nodes[y].left = z
	} else {
		t.nodes[y].right = z
	}

	t.insertFixup(z)
	t.count++
	return nil
}

// Delete removes the key (value, seq) and reports whether it was present.
func (t *Tree) Delete(value float64, seq uint64) bool {
	z := t.find(value, seq)
	if z == nilIdx {
		return false
	}

	yOrigRed := t.nodes[z].red
	var x int32
	switch {
	case t.nodes[z].left == nilIdx:
		x = t.nodes[z].right
		t.decPath(t.nodes[z].parent)
		t.transplant(z, x)
	case t.nodes[z].right == nilIdx:
		x = t.nodes[z].left
		t.decPath(t.nodes[z].parent)
		t.transplant(z, x)
	default:
		y := t.minimum(t.nodes[z].right)
		t.decPath(t.nodes[y].parent)
		yOrigRed = t.nodes[y].red
		x = t.nodes[y].right
		if t.nodes[y].parent == z {
			t.nodes[x].parent = y
		} else {
			t.transplant(y, x)
			t.nodes[y].right = t.nodes[z].right
			t.nodes[t.nodes[y].right].parent = y
		}
		t.transplant(z, y)
		t.nodes[y].left = t.nodes[z].left
		t.nodes[t.nodes[y].left].parent = y
		t.nodes[y].red = t.nodes[z].red
		t.nodes[y].size = t.nodes[t.nodes[y].left].size + t.nodes[t.nodes[y].right].size + 1
	}

	if !yOrigRed {
		t.deleteFixup(x)
	}

	// return z's slot to the free list
	t.nodes[z] = node{right: t.free}
	t.free = z
	t.count--
	t.nodes[nilIdx].parent = nilIdx
	return true
}

// Select returns the k-th smallest key's value, 0-indexed.
func (t *Tree) Select(k int) (float64, bool) {
	if k < 0 || k >= t.count {
		return 0, false
	}
	x := t.root
	for {
		r := int(t.nodes[t.nodes[x].left].size)
		if k < r {
			x = t.nodes[x].left
		} else if k == r {
			return t.nodes[x].value, true
		} else {
			k -= r + 1
			x = t.nodes[x].right
		}
	}
}

// Rank returns the number of keys strictly smaller than (value, seq), and
// whether the exact key is present.
func (t *Tree) Rank(value float64, seq uint64) (int, bool) {
	rank := 0
	x := t.root
	for x != nilIdx {
		if value == t.nodes[x].value && seq == t.nodes[x].seq {
			return rank + int(t.nodes[t.nodes[x].left].size), true
		}
		if less(value, seq, t.nodes[x].value, t.nodes[x].seq) {
			x = t.nodes[x].left
		} else {
			rank += int(t.nodes[t.nodes[x].left].size) + 1
			x = t.nodes[x].right
		}
	}
	return rank, false
}

// Do calls fn for every value in ascending key order.
func (t *Tree) Do(fn func(v float64)) {
	t.inorder(t.root, fn)
}

func (t *Tree) inorder(n int32, fn func(v float64)) {
	if n == nilIdx {
		return
	}
	t.inorder(t.nodes[n].left, fn)
	fn(t.nodes[n].value)
	t.inorder(t.nodes[n].right, fn)
}

func (t *Tree) find(value float64, seq uint64) int32 {
	x := t.root
	for x != nilIdx {
		if value == t.nodes[x].value && seq == t.nodes[x].seq {
			return x
		}
		if less(value, seq, t.nodes[x].value, t.nodes[x].seq) {
			x = t.nodes[x].left
		} else {
			x = t.nodes[x].right
		}
	}
	return nilIdx
}

func (t *Tree) minimum(x int32) int32 {
	for t.nodes[x].left != nilIdx {
		x = t.nodes[x].left
	}
	return x
}

// decPath decrements subtree sizes from p up to the root. Called with the
// parent of the node being physically unlinked.
func (t *Tree) decPath(p int32) {
	for ; p != nilIdx; p = t.nodes[p].parent {
		t.nodes[p].size--
	}
}

// transplant replaces the subtree rooted at u with the subtree rooted at v.
// v's parent pointer is set even when v is the sentinel; deleteFixup
// depends on it.
func (t *Tree) transplant(u, v int32) {
	up := t.nodes[u].parent
	if up == nilIdx {
		t.root = v
	} else if u == t.nodes[up].left {
		t.nodes[up].left = v
	} else {
		t.nodes[up].right = v
	}
	t.nodes[v].parent = up
}

// rotateLeft rotates x down to the left. Subtree sizes are recomputed
// locally from the (already correct) child sizes: first the demoted node,
// then its new parent.
func (t *Tree) rotateLeft(x int32) {
	y := t.nodes[x].right
	t.nodes[x].right = t.nodes[y].left
	if t.nodes[y].left != nilIdx {
		t.nodes[t.nodes[y].left].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	if t.nodes[x].parent == nilIdx {
		t.root = y
	} else if x == t.nodes[t.nodes[x].parent].left {
		t.nodes[t.nodes[x].parent].left = y
	} else {
		t.nodes[t.nodes[x].parent].right = y
	}
	t.nodes[y].left = x
	t.nodes[x].parent = y
	t.nodes[x].size = t.nodes[t.nodes[x].left].size + t.nodes[t.nodes[x].right].size + 1
	t.nodes[y].size = t.nodes[t.nodes[y].left].size + t.nodes[t.nodes[y].right].size + 1
}

func (t *Tree) rotateRight(x int32) {
	y := t.nodes[x].left
	t.nodes[x].left = t.nodes[y].right
	if t.nodes[y].right != nilIdx {
		t.nodes[t.nodes[y].right].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	if t.nodes[x].parent == nilIdx {
		t.root = y
	} else if x == t.nodes[t.nodes[x].parent].right {
		t.nodes[t.nodes[x].parent].right = y
	} else {
		t.nodes[t.nodes[x].parent].left = y
	}
	t.nodes[y].right = x
	t.nodes[x].parent = y
	t.nodes[x].size = t.nodes[t.nodes[x].left].size + t.nodes[t.nodes[x].right].size + 1
	t.nodes[y].size = t.nodes[t.nodes[y].left].size + t.nodes[t.nodes[y].right].size + 1
}

func (t *Tree) insertFixup(z int32) {
	for t.nodes[t.nodes[z].parent].red {
		p := t.nodes[z].parent
		g := t.nodes[p].parent
		if p == t.nodes[g].left {
			u := t.nodes[g].right
			if t.nodes[u].red {
				t.nodes[p].red = false
				t.nodes[u].red = false
				t.nodes[g].red = true
				z = g
			} else {
				if z == t.nodes[p].right {
					z = p
					t.rotateLeft(z)
					p = t.nodes[z].parent
					g = t.nodes[p].parent
				}
				t.nodes[p].red = false
				t.nodes[g].red = true
				t.rotateRight(g)
			}
		} else {
			u := t.nodes[g].left
			if t.nodes[u].red {
				t.nodes[p].red = false
				t.nodes[u].red = false
				t.nodes[g].red = true
				z = g
			} else {
				if z == t.nodes[p].left {
					z = p
					t.rotateRight(z)
					p = t.nodes[z].parent
					g = t.nodes[p].parent
				}
				t.nodes[p].red = false
				t.nodes[g].red = true
				t.rotateLeft(g)
			}
		}
	}
	t.nodes[t.root].red = false
}

func (t *Tree) deleteFixup(x int32) {
	for x != t.root && !t.nodes[x].red {
		p := t.nodes[x].parent
		if x == t.nodes[p].left {
			w := t.nodes[p].right
			if t.nodes[w].red {
				t.nodes[w].red = false
				t.nodes[p].red = true
				t.rotateLeft(p)
				p = t.nodes[x].parent
				w = t.nodes[p].right
			}
			if !t.nodes[t.nodes[w].left].red && !t.nodes[t.nodes[w].right].red {
				t.nodes[w].red = true
				x = p
			} else {
				if !t.nodes[t.nodes[w].right].red {
					t.nodes[t.nodes[w].left].red = false
					t.nodes[w].red = true
					t.rotateRight(w)
					w = t.nodes[p].right
				}
				t.nodes[w].red = t.nodes[p].red
				t.nodes[p].red = false
				t.nodes[t.nodes[w].right].red = false
				t.rotateLeft(p)
				x = t.root
			}
		} else {
			w := t.nodes[p].left
			if t.nodes[w].red {
				t.nodes[w].red = false
				t.nodes[p].red = true
				t.rotateRight(p)
				p = t.nodes[x].parent
				w = t.nodes[p].left
			}
			if !t.nodes[t.nodes[w].right].red && !t.nodes[t.nodes[w].left].red {
				t.nodes[w].red = true
				x = p
			} else {
				if !t.nodes[t.nodes[w].left].red {
					t.nodes[t.nodes[w].right].red = false
					t.nodes[w].red = true
					t.rotateLeft(w)
					w = t.nodes[p].left
				}
				t.nodes[w].red = t.nodes[p].red
				t.nodes[p].red = false
				t.nodes[t.nodes[w].left].red = false
				t.rotateRight(p)
				x = t.root
			}
		}
	}
	t.nodes[x].red = false
}
