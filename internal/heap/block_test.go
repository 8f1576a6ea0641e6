package heap

import "testing"

func TestManageFlagString(t *testing.T) {
	if ManageMark.String() != "mark" {
		t.Errorf("ManageMark.String() = %q, want mark", ManageMark.String())
	}
	if ManageFree.String() != "free" {
		t.Errorf("ManageFree.String() = %q, want free", ManageFree.String())
	}
}

func TestBlockFlagAccessors(t *testing.T) {
	b := &Block{flags: flagFirst | flagFree}

	if !b.isFirst() || !b.isFree() {
		t.Error("expected isFirst and isFree true")
	}
	if b.isEternal() || b.hasManager() || b.isFullRegion() {
		t.Error("unexpected flag set")
	}

	b.flags |= flagEternal
	if !b.isEternal() {
		t.Error("expected isEternal true after setting flagEternal")
	}
}

func TestBlockPtrAndBytes(t *testing.T) {
	r := &Region{payload: make([]byte, 256)}
	b := &Block{region: r, offset: 16, size: 32}

	got := b.bytes()
	if len(got) != 32 {
		t.Fatalf("bytes() length = %d, want 32", len(got))
	}
	got[0] = 0x42
	if r.payload[16] != 0x42 {
		t.Error("bytes() did not alias the region payload")
	}
}
