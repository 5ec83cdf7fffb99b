// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzw

import (
	"bytes"
	complzw "compress/lzw"
	"io"
	"testing"
)

// testData returns n bytes of mildly repetitive data whose values fit in
// litWidth bits.
func testData(n, litWidth int) []byte {
	mask := byte(1<<litWidth - 1)
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7+i/13) & mask
	}
	return data
}

func TestRoundTrip(t *testing.T) {
	for litWidth := 2; litWidth <= 8; litWidth++ {
		data := testData(1000, litWidth)
		var buf bytes.Buffer
		e, err := NewEncoder(&buf, litWidth)
		if err != nil {
			t.Fatalf("NewEncoder(%d): %v", litWidth, err)
		}
		if _, err := e.Write(data); err != nil {
			t.Fatalf("litWidth %d: Write: %v", litWidth, err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("litWidth %d: Close: %v", litWidth, err)
		}
		d, err := NewDecoder(litWidth)
		if err != nil {
			t.Fatalf("NewDecoder(%d): %v", litWidth, err)
		}
		n, out, err := d.DecodeBytes(buf.Bytes())
		if err != nil {
			t.Fatalf("litWidth %d: DecodeBytes: %v", litWidth, err)
		}
		if n != buf.Len() {
			t.Errorf("litWidth %d: consumed %d of %d bytes", litWidth, n, buf.Len())
		}
		if !d.Done() {
			t.Errorf("litWidth %d: end-of-information code not reached", litWidth)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("litWidth %d: decoded data differs", litWidth)
		}
	}
}

// The decoder must accept streams produced by compress/lzw and the
// encoder must produce streams compress/lzw accepts.
func TestStdlibCompatibility(t *testing.T) {
	for litWidth := 2; litWidth <= 8; litWidth++ {
		size := 4000
		if litWidth == 8 {
			// Enough data to fill the code table and force a mid-stream
			// clear code.
			size = 200000
		}
		data := testData(size, litWidth)

		var ref bytes.Buffer
		w := complzw.NewWriter(&ref, complzw.LSB, litWidth)
		if _, err := w.Write(data); err != nil {
			t.Fatalf("litWidth %d: compress/lzw Write: %v", litWidth, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("litWidth %d: compress/lzw Close: %v", litWidth, err)
		}
		d, err := NewDecoder(litWidth)
		if err != nil {
			t.Fatal(err)
		}
		_, out, err := d.DecodeBytes(ref.Bytes())
		if err != nil {
			t.Fatalf("litWidth %d: decoding compress/lzw stream: %v", litWidth, err)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("litWidth %d: decoding compress/lzw stream: data differs", litWidth)
		}

		var buf bytes.Buffer
		e, err := NewEncoder(&buf, litWidth)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Write(data); err != nil {
			t.Fatalf("litWidth %d: Write: %v", litWidth, err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("litWidth %d: Close: %v", litWidth, err)
		}
		r := complzw.NewReader(bytes.NewReader(buf.Bytes()), complzw.LSB, litWidth)
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("litWidth %d: compress/lzw decoding our stream: %v", litWidth, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("litWidth %d: compress/lzw decoding our stream: data differs", litWidth)
		}
	}
}

// Feeding the decoder one byte at a time must give the same output as
// feeding it the whole stream, whatever the code width.
func TestDecodeByteAtATime(t *testing.T) {
	for _, litWidth := range []int{2, 5, 8} {
		data := testData(3000, litWidth)
		var buf bytes.Buffer
		e, err := NewEncoder(&buf, litWidth)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := e.Close(); err != nil {
			t.Fatal(err)
		}
		d, err := NewDecoder(litWidth)
		if err != nil {
			t.Fatal(err)
		}
		var got []byte
		for _, b := range buf.Bytes() {
			n, out, err := d.DecodeBytes([]byte{b})
			if err != nil {
				t.Fatalf("litWidth %d: DecodeBytes: %v", litWidth, err)
			}
			if n != 1 {
				t.Fatalf("litWidth %d: consumed %d of 1 byte", litWidth, n)
			}
			got = append(got, out...)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("litWidth %d: byte-at-a-time decode differs", litWidth)
		}
	}
}

func TestLitWidthRange(t *testing.T) {
	for _, litWidth := range []int{-1, 0, 1, 9, 12} {
		if _, err := NewDecoder(litWidth); err == nil {
			t.Errorf("NewDecoder(%d): expected error", litWidth)
		}
		if _, err := NewEncoder(io.Discard, litWidth); err == nil {
			t.Errorf("NewEncoder(_, %d): expected error", litWidth)
		}
	}
}

// packLSB packs codes of the given width least significant bits first,
// the way a GIF code stream is laid out.
func packLSB(width uint, codes []uint32) []byte {
	var out []byte
	var bits uint32
	var n uint
	for _, c := range codes {
		bits |= c << n
		n += width
		for n >= 8 {
			out = append(out, byte(bits))
			bits >>= 8
			n -= 8
		}
	}
	if n > 0 {
		out = append(out, byte(bits))
	}
	return out
}

func TestInvalidCode(t *testing.T) {
	// After a clear code the highest assigned code is the
	// end-of-information code, so 511 is out of range.
	src := packLSB(9, []uint32{256, 511})
	d, err := NewDecoder(8)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.DecodeBytes(src); err == nil {
		t.Fatal("expected an error for an out-of-range code")
	}
}

func TestInputAfterEOIIsDiscarded(t *testing.T) {
	data := testData(100, 4)
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	buf.Write([]byte{0xAA, 0x55, 0xFF})
	d, err := NewDecoder(4)
	if err != nil {
		t.Fatal(err)
	}
	n, out, err := d.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("consumed %d of %d bytes", n, buf.Len())
	}
	if !d.Done() {
		t.Error("end-of-information code not reached")
	}
	if !bytes.Equal(out, data) {
		t.Error("trailing garbage changed the decoded data")
	}
}

func TestEncoderRejectsWideBytes(t *testing.T) {
	e, err := NewEncoder(io.Discard, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Write([]byte{0, 1, 4}); err == nil {
		t.Fatal("expected an error for a byte wider than litWidth")
	}
}

func TestCloseWithoutWrite(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal("Close is not idempotent")
	}
	d, err := NewDecoder(2)
	if err != nil {
		t.Fatal(err)
	}
	_, out, err := d.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("empty stream decoded to %d bytes", len(out))
	}
	if !d.Done() {
		t.Error("end-of-information code not reached")
	}
}
