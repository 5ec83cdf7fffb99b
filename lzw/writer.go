// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzw

import (
	"errors"
	"fmt"
	"io"
)

const (
	// maxHi is the largest code the encoder will assign. Reaching it
	// forces a clear code so the decoder's table never overflows.
	maxHi = 1<<maxWidth - 1
)

var errClosed = errors.New("lzw: encoder is closed")

// Encoder is an LZW compressor. It writes the compressed form of the
// bytes written to it to an underlying io.Writer, least significant bits
// first, starting with a clear code.
type Encoder struct {
	w        io.Writer
	litWidth uint

	bits  uint32
	nBits uint
	width uint

	clear, eoi, hi, overflow uint32

	// savedCode is the code accumulated across Write calls, or
	// invalidCode before the first byte is seen.
	savedCode uint32

	// table maps a prefix code and suffix byte, packed as code<<8|byte,
	// to the code standing for their concatenation.
	table map[uint32]uint32

	err error
	buf [1]byte
}

// NewEncoder returns an Encoder writing compressed codes for litWidth-bit
// literals to w. litWidth must be in [2,8].
func NewEncoder(w io.Writer, litWidth int) (*Encoder, error) {
	if litWidth < 2 || litWidth > 8 {
		return nil, fmt.Errorf("lzw: litWidth %d out of range", litWidth)
	}
	lw := uint(litWidth)
	return &Encoder{
		w:         w,
		litWidth:  lw,
		width:     lw + 1,
		clear:     1 << lw,
		eoi:       1<<lw + 1,
		hi:        1<<lw + 1,
		overflow:  1 << (lw + 1),
		savedCode: invalidCode,
		table:     make(map[uint32]uint32),
	}, nil
}

func (e *Encoder) writeCode(c uint32) error {
	e.bits |= c << e.nBits
	e.nBits += e.width
	for e.nBits >= 8 {
		e.buf[0] = byte(e.bits)
		if _, err := e.w.Write(e.buf[:]); err != nil {
			return err
		}
		e.bits >>= 8
		e.nBits -= 8
	}
	return nil
}

// incHi bumps the code implied by the next table insertion. When the code
// space is exhausted it emits a clear code and resets the table; the
// returned bool reports whether such a reset happened.
func (e *Encoder) incHi() (bool, error) {
	e.hi++
	if e.hi == e.overflow {
		e.width++
		e.overflow <<= 1
	}
	if e.hi == maxHi {
		if err := e.writeCode(e.clear); err != nil {
			return false, err
		}
		e.width = e.litWidth + 1
		e.hi = e.eoi
		e.overflow = e.clear << 1
		e.table = make(map[uint32]uint32)
		return true, nil
	}
	return false, nil
}

// Write compresses p. Every byte of p must fit in litWidth bits.
func (e *Encoder) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if maxLit := byte(1<<e.litWidth - 1); maxLit != 0xff {
		for _, x := range p {
			if x > maxLit {
				e.err = errors.New("lzw: input byte too large for the litWidth")
				return 0, e.err
			}
		}
	}
	n := len(p)
	code := e.savedCode
	if code == invalidCode {
		// First write: the GIF appendix asks encoders to start each
		// image's code stream with a clear code.
		if err := e.writeCode(e.clear); err != nil {
			e.err = err
			return 0, err
		}
		code, p = uint32(p[0]), p[1:]
	}
	for _, x := range p {
		key := code<<8 | uint32(x)
		if next, ok := e.table[key]; ok {
			code = next
			continue
		}
		if err := e.writeCode(code); err != nil {
			e.err = err
			return 0, err
		}
		code = uint32(x)
		reset, err := e.incHi()
		if err != nil {
			e.err = err
			return 0, err
		}
		if !reset {
			e.table[key] = e.hi
		}
	}
	e.savedCode = code
	return n, nil
}

// Close flushes the pending code, writes the end-of-information code and
// any buffered bits, and makes further Writes fail. It does not close
// the underlying writer.
func (e *Encoder) Close() error {
	if e.err != nil {
		if e.err == errClosed {
			return nil
		}
		return e.err
	}
	e.err = errClosed
	if e.savedCode != invalidCode {
		if err := e.writeCode(e.savedCode); err != nil {
			return err
		}
		if _, err := e.incHi(); err != nil {
			return err
		}
	} else {
		// Nothing was written; emit the clear code on its own so the
		// stream is still well formed.
		if err := e.writeCode(e.clear); err != nil {
			return err
		}
	}
	if err := e.writeCode(e.eoi); err != nil {
		return err
	}
	if e.nBits > 0 {
		e.buf[0] = byte(e.bits)
		if _, err := e.w.Write(e.buf[:]); err != nil {
			return err
		}
		e.bits, e.nBits = 0, 0
	}
	return nil
}
