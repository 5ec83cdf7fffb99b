// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gif implements a streaming GIF decoder and an encoder.
//
// The decoder is built around StreamingDecoder, a resumable state machine
// that can be fed input in chunks of any size and reports decoded pieces
// (palettes, frame metadata, pixel data) as they become available. Reader
// wraps it with buffering and frame assembly, and Decode/DecodeConfig
// expose the usual image package entry points on top.
//
// The GIF specification is at https://www.w3.org/Graphics/GIF/spec-gif89a.txt.
package gif

// plteChannels is the number of bytes per palette entry; GIF palettes
// are RGB.
const plteChannels = 3

// Block tags, the first byte of every top-level unit of a GIF stream.
const (
	BlockImage     byte = 0x2C
	BlockExtension byte = 0x21
	BlockTrailer   byte = 0x3B
)

// Extension tags, the byte following BlockExtension.
const (
	ExtText        byte = 0x01
	ExtControl     byte = 0xF9
	ExtComment     byte = 0xFE
	ExtApplication byte = 0xFF
)

// DisposalMethod tells the displayer what to do with a frame's region of
// the canvas before showing the next frame.
type DisposalMethod uint8

const (
	// DisposalNone requires no action.
	DisposalNone DisposalMethod = iota
	// DisposalKeep leaves the frame in place.
	DisposalKeep
	// DisposalBackground restores the region to the background color.
	DisposalBackground
	// DisposalPrevious restores the region to the previous frame.
	DisposalPrevious
)

// A Frame is one image of a GIF stream.
//
// Pixels holds one byte per pixel (a palette index) when decoded with
// Indexed output, and four bytes per pixel (RGBA) when decoded with
// TrueColor output. The encoder accepts indexed pixels only.
type Frame struct {
	// Position and size within the logical screen.
	Left, Top     uint16
	Width, Height uint16

	// Delay before the next frame, in hundredths of a second.
	Delay uint16

	Disposal       DisposalMethod
	NeedsUserInput bool
	Interlaced     bool

	// HasTransparency reports whether TransparentIndex is meaningful.
	HasTransparency  bool
	TransparentIndex uint8

	// Palette is the frame's local color table as RGB triples, or nil
	// if the frame uses the stream's global color table.
	Palette []byte

	Pixels []byte
}

// A GIF is the fully decoded form of a stream, as returned by DecodeAll.
type GIF struct {
	Width, Height   uint16
	GlobalPalette   []byte
	BackgroundIndex uint8
	Frames          []*Frame
}

// A FormatError reports that the input is not a valid, supported GIF.
// Decoding cannot be resumed after one.
type FormatError string

func (e FormatError) Error() string { return "gif: invalid format: " + string(e) }

// A UsageError reports a violation of the package's calling contract,
// as opposed to bad input data.
type UsageError string

func (e UsageError) Error() string { return "gif: " + string(e) }
