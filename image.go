// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gif

import (
	"image"
	"image/color"
	"io"
)

// Decode reads a GIF stream from r and returns its first frame as an
// image.Paletted. Interlaced frames are reordered into display order.
func Decode(r io.Reader) (image.Image, error) {
	rd, err := NewDecoder(r).ReadInfo()
	if err != nil {
		return nil, err
	}
	f, err := rd.ReadNextFrame()
	if err != nil {
		return nil, err
	}
	m := &image.Paletted{
		Pix:     f.Pixels,
		Stride:  int(f.Width),
		Rect:    image.Rect(0, 0, int(f.Width), int(f.Height)),
		Palette: toPalette(rd.Palette(), f),
	}
	if f.Interlaced {
		uninterlace(m)
	}
	return m, nil
}

// DecodeConfig returns the logical screen size and global color model of
// a GIF stream without decoding any pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	rd := &readDecoder{
		r:       r,
		decoder: NewStreamingDecoder(),
		buf:     make([]byte, 1024),
	}
	for {
		ev, err := rd.decodeNext()
		if err != nil {
			return image.Config{}, err
		}
		if ev.Kind == DecodedGlobalPalette {
			return image.Config{
				ColorModel: toPalette(ev.Palette, &Frame{}),
				Width:      int(rd.decoder.Width()),
				Height:     int(rd.decoder.Height()),
			}, nil
		}
	}
}

// toPalette converts an RGB color table to a color.Palette, zeroing the
// frame's transparent entry if it has one.
func toPalette(table []byte, f *Frame) color.Palette {
	n := len(table) / plteChannels
	p := make(color.Palette, n)
	for i := 0; i < n; i++ {
		p[i] = color.RGBA{
			R: table[plteChannels*i],
			G: table[plteChannels*i+1],
			B: table[plteChannels*i+2],
			A: 0xFF,
		}
	}
	if f.HasTransparency && int(f.TransparentIndex) < n {
		p[f.TransparentIndex] = color.RGBA{}
	}
	return p
}

// interlaceScan defines the ordering for a pass of the interlaced scan.
type interlaceScan struct {
	skip, start int
}

// interlacing is the successive passes of an interlaced image: every 8th
// row starting from row 0, every 8th from row 4, every 4th from row 2,
// and every 2nd from row 1.
var interlacing = []interlaceScan{
	{8, 0},
	{8, 4},
	{4, 2},
	{2, 1},
}

// uninterlace rearranges the rows of m from interlaced stream order into
// display order.
func uninterlace(m *image.Paletted) {
	dx := m.Bounds().Dx()
	dy := m.Bounds().Dy()
	nPix := make([]byte, dx*dy)
	offset := 0
	for _, pass := range interlacing {
		nOffset := pass.start * dx
		for y := pass.start; y < dy; y += pass.skip {
			copy(nPix[nOffset:nOffset+dx], m.Pix[offset:offset+dx])
			offset += dx
			nOffset += pass.skip * dx
		}
	}
	m.Pix = nPix
}

func init() {
	image.RegisterFormat("gif", "GIF8?a", Decode, DecodeConfig)
}
