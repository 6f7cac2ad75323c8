package crypto

import (
	"testing"

	"gitlab.com/NebulousLabs/fastrand"
)

func TestAuditTreeDeterministic(t *testing.T) {
	data := fastrand.Bytes(1024)
	challenges := NewChallenges(4)

	treeA, err := NewAuditTree(data, challenges)
	if err != nil {
		t.Fatal(err)
	}
	treeB, err := NewAuditTree(data, challenges)
	if err != nil {
		t.Fatal(err)
	}
	if string(treeA.Root()) != string(treeB.Root()) {
		t.Fatal("identical data and challenges produced different audit roots")
	}
}

func TestAuditTreeSensitiveToData(t *testing.T) {
	challenges := NewChallenges(2)
	treeA, err := NewAuditTree(fastrand.Bytes(256), challenges)
	if err != nil {
		t.Fatal(err)
	}
	treeB, err := NewAuditTree(fastrand.Bytes(256), challenges)
	if err != nil {
		t.Fatal(err)
	}
	if string(treeA.Root()) == string(treeB.Root()) {
		t.Fatal("different shard bytes produced the same audit root")
	}
}

func TestNewAuditTreeRejectsNoChallenges(t *testing.T) {
	if _, err := NewAuditTree(fastrand.Bytes(32), nil); err == nil {
		t.Fatal("expected an error building an audit tree with zero challenges")
	}
}

func TestPadToPowerOfTwoNonPowerOfTwoLeafCount(t *testing.T) {
	leaves := make([][]byte, 3)
	for i := range leaves {
		leaves[i] = fastrand.Bytes(HashSize)
	}
	padded := padToPowerOfTwo(leaves)
	if len(padded) != 4 {
		t.Fatalf("expected padding to the next power of two (4), got %d", len(padded))
	}
	for i := range leaves {
		if string(padded[i]) != string(leaves[i]) {
			t.Fatalf("padding altered original leaf %d", i)
		}
	}
	for _, b := range padded[3] {
		if b != 0 {
			t.Fatal("padding leaf is not all-zero")
		}
	}
}
