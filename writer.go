// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gif

import (
	"encoding/binary"
	"io"

	"github.com/gographics/gif/lzw"
)

var enc = binary.LittleEndian

// An Encoder writes a GIF stream. The logical screen descriptor is
// written lazily, before the first palette, extension or frame, so the
// global color table and Background can be supplied after construction.
// Close finishes the stream; a stream without it is malformed.
type Encoder struct {
	w             io.Writer
	width, height uint16

	// Background is the background color's index into the global color
	// table. It must be set before the first write.
	Background uint8

	headerWritten bool
	globalPalette bool
	closed        bool

	buf [13]byte
}

// NewEncoder returns an Encoder writing a GIF stream with the given
// logical screen size to w.
func NewEncoder(w io.Writer, width, height uint16) *Encoder {
	return &Encoder{w: w, width: width, height: height}
}

// WriteGlobalPalette writes the screen descriptor with the given global
// color table, padded to the next power-of-two entry count. It must be
// called before any frame or extension.
func (e *Encoder) WriteGlobalPalette(palette []byte) error {
	if e.closed {
		return UsageError("encoder is closed")
	}
	if e.headerWritten {
		return UsageError("global color table must precede all frames")
	}
	if len(palette) == 0 || len(palette)%plteChannels != 0 {
		return UsageError("color table length must be a positive multiple of 3")
	}
	e.globalPalette = true
	return e.writeScreenDesc(palette)
}

// WriteFrame writes a complete frame: a control extension when the frame
// needs one, the image descriptor, the local color table if any, and the
// compressed pixel data. Pixels must hold one palette index per pixel.
func (e *Encoder) WriteFrame(f *Frame) error {
	if e.closed {
		return UsageError("encoder is closed")
	}
	if len(f.Pixels) != int(f.Width)*int(f.Height) {
		return UsageError("pixel buffer size does not match frame dimensions")
	}
	if err := e.writeScreenDesc(nil); err != nil {
		return err
	}
	if f.Delay > 0 || f.HasTransparency {
		if err := e.writeControlExt(f); err != nil {
			return err
		}
	}
	e.buf[0] = BlockImage
	enc.PutUint16(e.buf[1:], f.Left)
	enc.PutUint16(e.buf[3:], f.Top)
	enc.PutUint16(e.buf[5:], f.Width)
	enc.PutUint16(e.buf[7:], f.Height)
	var flags byte
	if f.Interlaced {
		flags |= 0x40
	}
	if f.Palette != nil {
		if len(f.Palette) == 0 || len(f.Palette)%plteChannels != 0 {
			return UsageError("color table length must be a positive multiple of 3")
		}
		flags |= 0x80 | flagSize(len(f.Palette)/plteChannels)
	} else if !e.globalPalette {
		return UsageError("the GIF format requires a color table but none was given")
	}
	e.buf[9] = flags
	if _, err := e.w.Write(e.buf[:10]); err != nil {
		return err
	}
	if f.Palette != nil {
		if err := e.writeColorTable(f.Palette); err != nil {
			return err
		}
	}
	return e.writeImageBlock(f.Pixels)
}

func (e *Encoder) writeControlExt(f *Frame) error {
	var flags byte
	var trns uint8
	if f.HasTransparency {
		flags |= 0x01
		trns = f.TransparentIndex
	}
	if f.NeedsUserInput {
		flags |= 0x02
	}
	flags |= byte(f.Disposal) << 2
	e.buf[0] = BlockExtension
	e.buf[1] = ExtControl
	e.buf[2] = 4
	e.buf[3] = flags
	enc.PutUint16(e.buf[4:], f.Delay)
	e.buf[6] = trns
	e.buf[7] = 0
	_, err := e.w.Write(e.buf[:8])
	return err
}

func (e *Encoder) writeImageBlock(pixels []byte) error {
	var maxPixel byte
	for _, p := range pixels {
		if p > maxPixel {
			maxPixel = p
		}
	}
	minCodeSize := flagSize(int(maxPixel)+1) + 1
	if minCodeSize < 2 {
		// The format floors the minimum code size at 2.
		minCodeSize = 2
	}
	e.buf[0] = minCodeSize
	if _, err := e.w.Write(e.buf[:1]); err != nil {
		return err
	}
	bw := &blockWriter{w: e.w}
	lz, err := lzw.NewEncoder(bw, int(minCodeSize))
	if err != nil {
		return err
	}
	if _, err := lz.Write(pixels); err != nil {
		return err
	}
	if err := lz.Close(); err != nil {
		return err
	}
	if err := bw.flush(); err != nil {
		return err
	}
	// Zero-length sub-block ends the image data.
	e.buf[0] = 0
	_, err = e.w.Write(e.buf[:1])
	return err
}

// WriteRawExtension writes an extension block with the given tag. data is
// split into sub-blocks of at most 255 bytes.
func (e *Encoder) WriteRawExtension(tag byte, data []byte) error {
	if e.closed {
		return UsageError("encoder is closed")
	}
	if err := e.writeScreenDesc(nil); err != nil {
		return err
	}
	e.buf[0] = BlockExtension
	e.buf[1] = tag
	if _, err := e.w.Write(e.buf[:2]); err != nil {
		return err
	}
	for len(data) > 0 {
		n := min(len(data), 0xFF)
		e.buf[0] = byte(n)
		if _, err := e.w.Write(e.buf[:1]); err != nil {
			return err
		}
		if _, err := e.w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	e.buf[0] = 0
	_, err := e.w.Write(e.buf[:1])
	return err
}

// Close writes the stream trailer, writing the screen descriptor first if
// nothing else has. It is idempotent and does not close the underlying
// writer.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	if err := e.writeScreenDesc(nil); err != nil {
		return err
	}
	e.closed = true
	e.buf[0] = BlockTrailer
	_, err := e.w.Write(e.buf[:1])
	return err
}

func (e *Encoder) writeScreenDesc(palette []byte) error {
	if e.headerWritten {
		return nil
	}
	e.headerWritten = true
	b := e.buf[:13]
	copy(b, "GIF89a")
	enc.PutUint16(b[6:], e.width)
	enc.PutUint16(b[8:], e.height)
	var flags byte
	if palette != nil {
		size := flagSize(len(palette) / plteChannels)
		flags = 0x80 | size<<4 | size
	}
	b[10] = flags
	b[11] = e.Background
	b[12] = 0 // pixel aspect ratio
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	if palette != nil {
		return e.writeColorTable(palette)
	}
	return nil
}

// writeColorTable writes table padded with black entries to the
// power-of-two count the packed size field implies.
func (e *Encoder) writeColorTable(table []byte) error {
	numColors := len(table) / plteChannels
	size := flagSize(numColors)
	if _, err := e.w.Write(table[:numColors*plteChannels]); err != nil {
		return err
	}
	var zero [plteChannels]byte
	for i := numColors; i < 2<<size; i++ {
		if _, err := e.w.Write(zero[:]); err != nil {
			return err
		}
	}
	return nil
}

// flagSize returns the packed-field size exponent for a color table of
// n entries: the smallest s with 2<<s >= n.
func flagSize(n int) byte {
	switch {
	case n <= 2:
		return 0
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	case n <= 16:
		return 3
	case n <= 32:
		return 4
	case n <= 64:
		return 5
	case n <= 128:
		return 6
	default:
		return 7
	}
}

// blockWriter chops a compressed code stream into length-prefixed
// sub-blocks of at most 255 bytes.
type blockWriter struct {
	w   io.Writer
	n   int
	buf [256]byte
}

func (b *blockWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		k := copy(b.buf[1+b.n:], p)
		b.n += k
		p = p[k:]
		if b.n == 255 {
			if err := b.flush(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

func (b *blockWriter) flush() error {
	if b.n == 0 {
		return nil
	}
	b.buf[0] = byte(b.n)
	_, err := b.w.Write(b.buf[:1+b.n])
	b.n = 0
	return err
}
