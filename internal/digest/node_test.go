package digest

import "testing"

func TestNodeMidAndLeaf(t *testing.T) {
	n := newNode(0, 7)
	if n.mid() != 3 {
		t.Log("mid() =", n.mid(), "expected 3")
		t.FailNow()
	}
	if !n.isLeaf() {
		t.Log("freshly allocated node should be a leaf")
		t.FailNow()
	}
	n.left = newNode(0, 3)
	if n.isLeaf() {
		t.Log("node with a child should not be a leaf")
		t.FailNow()
	}
}

func TestNodeTripleCount(t *testing.T) {
	n := newNode(0, 7)
	n.count = 2
	n.left = newNode(0, 3)
	n.left.count = 3
	n.right = newNode(4, 7)
	n.right.count = 5
	if got := n.tripleCount(); got != 10 {
		t.Log("tripleCount() =", got, "expected 10")
		t.FailNow()
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := &nodeQueue{}
	a, b, c := newNode(0, 1), newNode(2, 3), newNode(4, 5)
	q.push(a)
	q.push(b)
	q.push(c)

	if got := q.pop(); got != a {
		t.Log("expected a first")
		t.FailNow()
	}
	if got := q.pop(); got != b {
		t.Log("expected b second")
		t.FailNow()
	}
	if got := q.pop(); got != c {
		t.Log("expected c third")
		t.FailNow()
	}
	if got := q.pop(); got != nil {
		t.Log("expected nil popping an empty queue")
		t.FailNow()
	}
}
