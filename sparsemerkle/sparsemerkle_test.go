package sparsemerkle

import (
	"testing"

	"github.com/dapplion/consolidation-incentives-go/zerohash"
)

func leaf(b byte) [32]byte {
	var l [32]byte
	for i := range l {
		l[i] = b
	}
	return l
}

func TestProveSingleLeaf(t *testing.T) {
	leaves := [][32]byte{leaf(1)}
	branch, root, err := Prove(leaves, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(branch) != 1 {
		t.Fatalf("branch length = %d, want 1", len(branch))
	}
	if branch[0] != zerohash.Zero(0) {
		t.Errorf("sibling = %x, want zero leaf", branch[0])
	}
	if want := zerohash.Pair(leaf(1), zerohash.Zero(0)); root != want {
		t.Errorf("root = %x, want %x", root, want)
	}
}

func TestProveDepthZero(t *testing.T) {
	leaves := [][32]byte{leaf(42)}
	branch, root, err := Prove(leaves, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(branch) != 0 {
		t.Fatalf("branch length = %d, want 0", len(branch))
	}
	if root != leaf(42) {
		t.Errorf("root = %x, want %x", root, leaf(42))
	}
}

func TestProveTwoLeaves(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2)}

	branch0, root0, err := Prove(leaves, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if branch0[0] != leaf(2) {
		t.Errorf("branch0[0] = %x, want leaf(2)", branch0[0])
	}
	if want := zerohash.Pair(leaf(1), leaf(2)); root0 != want {
		t.Errorf("root0 = %x, want %x", root0, want)
	}

	branch1, root1, err := Prove(leaves, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if branch1[0] != leaf(1) {
		t.Errorf("branch1[0] = %x, want leaf(1)", branch1[0])
	}
	if root1 != root0 {
		t.Errorf("root1 = %x, want root0 %x", root1, root0)
	}
}

func TestProveWithVirtualPadding(t *testing.T) {
	// 3 real leaves in a depth-2 tree (4 leaf slots).
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3)}

	branch, root, err := Prove(leaves, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(branch) != 2 {
		t.Fatalf("branch length = %d, want 2", len(branch))
	}
	if branch[0] != leaf(2) {
		t.Errorf("branch[0] = %x, want leaf(2)", branch[0])
	}
	rightSubtree := zerohash.Pair(leaf(3), zerohash.Zero(0))
	if branch[1] != rightSubtree {
		t.Errorf("branch[1] = %x, want %x", branch[1], rightSubtree)
	}

	current := zerohash.Pair(leaf(1), branch[0])
	current = zerohash.Pair(current, branch[1])
	if current != root {
		t.Errorf("recomputed root = %x, want %x", current, root)
	}
}

func TestProveLargeDepthSparse(t *testing.T) {
	leaves := [][32]byte{leaf(0xAA), leaf(0xBB)}
	branch, _, err := Prove(leaves, 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(branch) != 20 {
		t.Fatalf("branch length = %d, want 20", len(branch))
	}
	if branch[0] != leaf(0xBB) {
		t.Errorf("branch[0] = %x, want leaf(0xBB)", branch[0])
	}
	for i := 1; i < 20; i++ {
		if branch[i] != zerohash.Zero(i) {
			t.Errorf("branch[%d] = %x, want zero hash at depth %d", i, branch[i], i)
		}
	}
}

func TestProveIndexOutOfRange(t *testing.T) {
	leaves := [][32]byte{leaf(1)}
	if _, _, err := Prove(leaves, 4, 2); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3), leaf(4)}
	for _, idx := range []uint64{0, 1, 2, 3} {
		branch, root, err := Prove(leaves, idx, 2)
		if err != nil {
			t.Fatal(err)
		}
		// gindex for index idx at depth 2 = 4 + idx
		gindex := uint64(4) + idx
		ok, err := Verify(root, leaf(byte(idx+1)), branch, gindex)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("Verify failed for index %d", idx)
		}
	}
}

func TestVerifyRejectsWrongBranchLength(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3), leaf(4)}
	branch, root, err := Prove(leaves, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(root, leaf(3), branch[:1], 6); err == nil {
		t.Fatal("expected error for truncated branch")
	}
}

func TestVerifyRejectsWrongRoot(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2)}
	branch, root, err := Prove(leaves, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	root[0] ^= 0xFF
	ok, err := Verify(root, leaf(1), branch, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Verify accepted a tampered root")
	}
}

func TestSubtreeRootMatchesProve(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3)}
	_, root, err := Prove(leaves, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := SubtreeRoot(leaves, 2); got != root {
		t.Errorf("SubtreeRoot = %x, want %x", got, root)
	}
}
