// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lzw implements the variable-width LZW codec used by GIF image
// data: codes are packed least significant bits first, start one bit wider
// than the literal width and grow up to 12 bits, and the code table is
// reset by a clear code and terminated by an end-of-information code.
//
// Unlike compress/lzw, which wraps an io.Reader, the Decoder here is fed
// byte slices and can be suspended at any point, including in the middle
// of a code. That is what a resumable container parser needs: compressed
// bytes arrive in arbitrary chunks (sub-blocks split wherever the caller's
// buffer happens to end) and decompression state has to survive every
// boundary.
package lzw

import (
	"errors"
	"fmt"
)

const (
	maxWidth    = 12
	invalidCode = 0xffff
)

var errInvalidCode = errors.New("lzw: invalid code")

// Decoder decompresses a GIF LZW code stream fed to it in arbitrary
// chunks. The zero value is not usable; call NewDecoder.
type Decoder struct {
	litWidth uint
	width    uint

	// The low nBits bits of bits hold input that does not yet form a
	// whole code. This is the state that carries a partial code across
	// chunk boundaries.
	bits  uint32
	nBits uint

	// clear and eoi are the two reserved codes. hi is the code implied
	// by the next table insertion and overflow is the code at which hi
	// overflows the current width; it always equals 1 << width.
	clear, eoi, hi, overflow uint16

	// last is the previously seen code, or invalidCode directly after a
	// clear code (and after the table fills up).
	last uint16

	done bool

	// Each code expands to the expansion of its prefix followed by its
	// suffix byte. Literal codes have length 1.
	prefix [1 << maxWidth]uint16
	suffix [1 << maxWidth]byte
	length [1 << maxWidth]uint16

	out []byte
}

// NewDecoder returns a Decoder for a code stream whose literal codes are
// litWidth bits wide. litWidth must be in [2,8], the range the GIF
// minimum code size byte allows.
func NewDecoder(litWidth int) (*Decoder, error) {
	if litWidth < 2 || litWidth > 8 {
		return nil, fmt.Errorf("lzw: litWidth %d out of range", litWidth)
	}
	d := &Decoder{
		litWidth: uint(litWidth),
		clear:    1 << uint(litWidth),
		eoi:      1<<uint(litWidth) + 1,
		last:     invalidCode,
	}
	for i := 0; i < 1<<uint(litWidth); i++ {
		d.suffix[i] = byte(i)
		d.length[i] = 1
	}
	d.reset()
	return d, nil
}

func (d *Decoder) reset() {
	d.width = d.litWidth + 1
	d.hi = d.eoi
	d.overflow = 1 << d.width
	d.last = invalidCode
}

// Done reports whether the end-of-information code has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// DecodeBytes decompresses src and returns the number of input bytes
// consumed together with the decompressed bytes. The returned slice is
// owned by the Decoder and is only valid until the next call.
//
// All of src is consumed unless decoding fails. Input following the
// end-of-information code is consumed and discarded, so a caller can
// drain the remainder of a sub-block without special casing.
func (d *Decoder) DecodeBytes(src []byte) (int, []byte, error) {
	d.out = d.out[:0]
	for i, b := range src {
		if d.done {
			return len(src), d.out, nil
		}
		d.bits |= uint32(b) << d.nBits
		d.nBits += 8
		for d.nBits >= d.width {
			code := uint16(d.bits & (1<<d.width - 1))
			d.bits >>= d.width
			d.nBits -= d.width
			if err := d.decode(code); err != nil {
				return i + 1, d.out, err
			}
			if d.done {
				d.bits, d.nBits = 0, 0
				break
			}
		}
	}
	return len(src), d.out, nil
}

func (d *Decoder) decode(code uint16) error {
	switch {
	case code < d.clear:
		d.out = append(d.out, byte(code))
		if d.last != invalidCode {
			d.prefix[d.hi] = d.last
			d.suffix[d.hi] = byte(code)
			d.length[d.hi] = d.length[d.last] + 1
		}
	case code == d.clear:
		d.reset()
		return nil
	case code == d.eoi:
		d.done = true
		return nil
	case code <= d.hi:
		if code == d.hi && d.last != invalidCode {
			// The code equals the entry about to be defined: it
			// expands to the previous expansion plus that
			// expansion's first byte. Define the entry first, then
			// expand it like any other.
			d.prefix[d.hi] = d.last
			d.suffix[d.hi] = d.firstByte(d.last)
			d.length[d.hi] = d.length[d.last] + 1
			d.expand(code)
		} else {
			d.expand(code)
			if d.last != invalidCode {
				d.prefix[d.hi] = d.last
				d.suffix[d.hi] = d.firstByte(code)
				d.length[d.hi] = d.length[d.last] + 1
			}
		}
	default:
		return errInvalidCode
	}
	d.last = code
	d.hi++
	if d.hi >= d.overflow {
		if d.width == maxWidth {
			// The table is full. Stop inserting and keep reading
			// 12-bit codes until a clear code arrives.
			d.last = invalidCode
			d.hi--
		} else {
			d.width++
			d.overflow <<= 1
		}
	}
	return nil
}

// expand appends the expansion of code to d.out. The chain is walked
// back to front, so the output region is filled in reverse.
func (d *Decoder) expand(code uint16) {
	n := int(d.length[code])
	i := len(d.out)
	d.out = append(d.out, make([]byte, n)...)
	c := code
	for j := i + n - 1; j >= i; j-- {
		d.out[j] = d.suffix[c]
		c = d.prefix[c]
	}
}

func (d *Decoder) firstByte(code uint16) byte {
	for code >= d.clear {
		code = d.prefix[code]
	}
	return byte(code)
}
