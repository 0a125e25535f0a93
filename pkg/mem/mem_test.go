package mem

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	im := New(DefaultSize)
	h := NewHandle(im)

	if !h.Write8(0x100, 0x0102030405060708) {
		t.Fatal("Write8 at 0x100 should succeed")
	}
	got, ok := h.Read8(0x100)
	if !ok {
		t.Fatal("Read8 at 0x100 should succeed")
	}
	if got != 0x0102030405060708 {
		t.Errorf("got %#x", got)
	}
}

func TestLastEightBytesBoundary(t *testing.T) {
	im := New(DefaultSize)
	h := NewHandle(im)

	// addr = M-8 is the last legal 8-byte access (invariant 9).
	if !h.Write8(im.Size()-8, 0xff) {
		t.Fatal("write to last 8 bytes should succeed")
	}
	// addr = M-7 must fault without mutating the image.
	before := h.Bytes()
	if h.Write8(im.Size()-7, 0xdeadbeef) {
		t.Fatal("write past end of image should fault")
	}
	after := h.Bytes()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("fault mutated image at byte %d", i)
		}
	}
}

func TestReadWindowTruncatesAtEnd(t *testing.T) {
	im := New(16)
	h := NewHandle(im)
	h.LoadAt(10, []byte{1, 2, 3, 4, 5, 6})

	w := h.ReadWindow(10, 10)
	if len(w) != 6 {
		t.Fatalf("expected truncated window of 6 bytes, got %d", len(w))
	}
}

func TestAddrOverflowFaults(t *testing.T) {
	im := New(DefaultSize)
	h := NewHandle(im)
	if _, ok := h.Read8(^uint64(0) - 2); ok {
		t.Fatal("wraparound address should fault, not wrap")
	}
}
