// Package mem implements the memory substrate shared by the instruction-
// fetch and data-memory functional units: a fixed-size byte array behind a
// reference-counted, interior-mutable handle (spec.md §3, §5).
package mem

import "sync"

// DefaultSize is the default memory image size, 2^20 bytes (spec.md §3).
const DefaultSize = 1 << 20

// Image is the backing byte array. It is never addressed directly by
// functional units; they go through a Handle.
type Image struct {
	mu   sync.RWMutex
	buf  []byte
	size uint64
}

// New allocates a zeroed image of the given size.
func New(size uint64) *Image {
	return &Image{buf: make([]byte, size), size: size}
}

// Size returns the image's byte size.
func (im *Image) Size() uint64 { return im.size }

// Handle gives one functional unit read-many/exclusive-write access to an
// Image. Each unit that needs memory access keeps its own Handle, built
// once by the architecture builder; the lock is taken only for the
// duration of each individual access (spec.md §5: "each
// sharing unit acquires the read or write borrow for the duration of its
// own body").
type Handle struct {
	im *Image
}

// NewHandle wraps an Image for use by one functional unit.
func NewHandle(im *Image) Handle { return Handle{im: im} }

// Read8 loads 8 bytes little-endian starting at addr. ok is false (an
// address fault, spec.md §3 invariant 3) if addr+8 would exceed the image.
func (h Handle) Read8(addr uint64) (val uint64, ok bool) {
	h.im.mu.RLock()
	defer h.im.mu.RUnlock()
	if addr+8 > h.im.size || addr+8 < addr {
		return 0, false
	}
	b := h.im.buf[addr : addr+8]
	for i := 0; i < 8; i++ {
		val |= uint64(b[i]) << (8 * i)
	}
	return val, true
}

// Write8 stores val as 8 bytes little-endian starting at addr. ok is false
// on an address fault; on fault the image is left unmutated (invariant 3).
func (h Handle) Write8(addr uint64, val uint64) (ok bool) {
	h.im.mu.Lock()
	defer h.im.mu.Unlock()
	if addr+8 > h.im.size || addr+8 < addr {
		return false
	}
	b := h.im.buf[addr : addr+8]
	for i := 0; i < 8; i++ {
		b[i] = byte(val >> (8 * i))
	}
	return true
}

// ReadWindow returns up to n bytes starting at addr, truncated at the end
// of the image (used by instruction fetch to decode a variable-length
// instruction without pre-knowing its length).
func (h Handle) ReadWindow(addr uint64, n int) []byte {
	h.im.mu.RLock()
	defer h.im.mu.RUnlock()
	if addr >= h.im.size {
		return nil
	}
	end := addr + uint64(n)
	if end > h.im.size {
		end = h.im.size
	}
	out := make([]byte, end-addr)
	copy(out, h.im.buf[addr:end])
	return out
}

// Bytes returns a copy of the entire image, for diffing/printing at the CLI
// layer (never used inside the pipeline's hot path).
func (h Handle) Bytes() []byte {
	h.im.mu.RLock()
	defer h.im.mu.RUnlock()
	out := make([]byte, len(h.im.buf))
	copy(out, h.im.buf)
	return out
}

// LoadAt copies src into the image starting at addr, growing no memory:
// src must fit within the image. Used once at simulator construction to
// install the assembled program image, never from within a cycle.
func (h Handle) LoadAt(addr uint64, src []byte) bool {
	h.im.mu.Lock()
	defer h.im.mu.Unlock()
	if addr+uint64(len(src)) > h.im.size {
		return false
	}
	copy(h.im.buf[addr:], src)
	return true
}
