// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gif

import (
	"io"
)

// nChannels is the number of bytes per pixel of TrueColor output.
const nChannels = 4

// ColorOutput selects the pixel format a Reader produces.
type ColorOutput uint8

const (
	// Indexed output is one palette index byte per pixel.
	Indexed ColorOutput = iota
	// TrueColor output is four RGBA bytes per pixel, expanded through
	// the frame's color table.
	TrueColor
)

// A Decoder configures decoding of a GIF stream. Set the exported fields
// as needed, then call ReadInfo.
type Decoder struct {
	r io.Reader

	// ColorOutput selects indexed or RGBA pixel output.
	ColorOutput ColorOutput

	// SaveExtensions makes extension payloads available through
	// Reader.LastExt.
	SaveExtensions bool
}

// NewDecoder returns a Decoder reading a GIF stream from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadInfo reads the stream up to and including the first frame's
// metadata and returns a Reader positioned to read its pixel data.
func (d *Decoder) ReadInfo() (*Reader, error) {
	sd := NewStreamingDecoder()
	sd.SaveExtensions = d.SaveExtensions
	r := &Reader{
		d: &readDecoder{
			r:       d.r,
			decoder: sd,
			buf:     make([]byte, 4096),
		},
		colorOutput: d.ColorOutput,
	}
	ok, err := r.nextFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, FormatError("file does not contain any image data")
	}
	return r, nil
}

// readDecoder feeds buffered input from an io.Reader to a
// StreamingDecoder.
type readDecoder struct {
	r       io.Reader
	decoder *StreamingDecoder
	buf     []byte
	i, j    int // unconsumed window is buf[i:j]
	readErr error
}

// decodeNext runs the decoder until it reports something other than
// DecodedNothing. Running out of input before the trailer is a format
// error.
func (rd *readDecoder) decodeNext() (Decoded, error) {
	for {
		if rd.i == rd.j {
			if err := rd.fill(); err != nil {
				return Decoded{}, err
			}
		}
		consumed, ev, err := rd.decoder.Update(rd.buf[rd.i:rd.j])
		rd.i += consumed
		if err != nil {
			return Decoded{}, err
		}
		if ev.Kind != DecodedNothing {
			return ev, nil
		}
	}
}

func (rd *readDecoder) fill() error {
	if rd.readErr != nil {
		return rd.readErr
	}
	n, err := rd.r.Read(rd.buf)
	rd.i, rd.j = 0, n
	if err != nil {
		if err == io.EOF {
			// decodeNext only asks for input when the stream is not
			// finished, so a clean EOF here still means truncation.
			err = FormatError("unexpected EOF")
		}
		rd.readErr = err
	}
	if n == 0 {
		return rd.readErr
	}
	return nil
}

// A Reader decodes the frames of a GIF stream. It is created by
// Decoder.ReadInfo and is positioned at the first frame.
type Reader struct {
	d           *readDecoder
	colorOutput ColorOutput

	globalPalette []byte

	// frame is a copy of the current frame's metadata. haveFrame
	// reports whether its pixel data is still ahead of the parser.
	frame     Frame
	haveFrame bool

	// pending holds raw index bytes decoded past what the caller has
	// consumed, for example when a compressed chunk straddles a line
	// boundary.
	pending []byte

	frames []*Frame
}

// nextFrame advances the parser to the next frame's metadata. It reports
// false at the end of the stream.
func (r *Reader) nextFrame() (bool, error) {
	for {
		ev, err := r.d.decodeNext()
		if err != nil {
			return false, err
		}
		switch ev.Kind {
		case DecodedGlobalPalette:
			r.globalPalette = append([]byte(nil), ev.Palette...)
		case DecodedFrame:
			r.setFrame(ev.Frame)
			if r.frame.Palette == nil && r.globalPalette == nil {
				return false, FormatError("image does not contain any color table")
			}
			return true, nil
		case DecodedTrailer:
			return false, nil
		}
	}
}

func (r *Reader) setFrame(f *Frame) {
	r.frame = *f
	if f.Palette != nil {
		r.frame.Palette = append([]byte(nil), f.Palette...)
	}
	r.haveFrame = true
}

// ReadNextFrame decodes the next frame completely and returns it, or
// (nil, nil) at the end of the stream. The returned frame's Pixels are in
// the format selected by ColorOutput, in stream order; interlaced frames
// are not reordered.
func (r *Reader) ReadNextFrame() (*Frame, error) {
	if !r.haveFrame {
		ok, err := r.nextFrame()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	buf := make([]byte, r.BufferSize())
	ll := r.LineLength()
	for i := 0; i < len(buf); i += ll {
		ok, err := r.ReadLine(buf[i : i+ll])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, FormatError("image truncated")
		}
	}
	r.frame.Pixels = buf
	r.haveFrame = false
	f := r.frame
	return &f, nil
}

// ReadLine fills buf with the next line of the current frame's pixel
// data. buf must be LineLength bytes long. It reports false when the
// frame has no more data.
func (r *Reader) ReadLine(buf []byte) (bool, error) {
	if len(r.pending) > 0 {
		n := r.handleData(buf, r.pending)
		r.pending = r.pending[:copy(r.pending, r.pending[n:])]
		buf = buf[n*r.channels():]
		if len(buf) == 0 {
			return true, nil
		}
	}
	for {
		ev, err := r.d.decodeNext()
		if err != nil {
			return false, err
		}
		switch ev.Kind {
		case DecodedData:
			n := r.handleData(buf, ev.Data)
			buf = buf[n*r.channels():]
			if len(buf) > 0 {
				continue
			}
			if n < len(ev.Data) {
				r.pending = append(r.pending, ev.Data[n:]...)
			}
			return true, nil
		case DecodedDataEnd:
			r.haveFrame = false
			return false, nil
		default:
			return false, nil
		}
	}
}

// SeekTo decodes until the parser reaches at least the given milestone.
// Pixel data decoded on the way is buffered and stays available to
// ReadLine and ReadNextFrame.
func (r *Reader) SeekTo(p Progress) error {
	for r.d.decoder.Progress() < p {
		ev, err := r.d.decodeNext()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case DecodedGlobalPalette:
			r.globalPalette = append([]byte(nil), ev.Palette...)
		case DecodedFrame:
			r.setFrame(ev.Frame)
		case DecodedData:
			r.pending = append(r.pending, ev.Data...)
		}
	}
	return nil
}

// ReadToEnd decodes all remaining frames. They are available through
// Frames afterwards.
func (r *Reader) ReadToEnd() error {
	for {
		f, err := r.ReadNextFrame()
		if err != nil {
			return err
		}
		if f == nil {
			return nil
		}
		r.frames = append(r.frames, f)
	}
}

// Frames returns the frames accumulated by ReadToEnd.
func (r *Reader) Frames() []*Frame { return r.frames }

// handleData converts up to len(data) pixels into buf and returns the
// number of source indices consumed.
func (r *Reader) handleData(buf, data []byte) int {
	if r.colorOutput == TrueColor {
		return r.expandLine(buf, data)
	}
	n := min(len(buf), len(data))
	copy(buf, data[:n])
	return n
}

// expandLine expands index bytes to RGBA through the frame's effective
// color table. Indices past the end of the table leave the destination
// pixel untouched.
func (r *Reader) expandLine(buf, data []byte) int {
	palette := r.Palette()
	n := min(len(buf)/nChannels, len(data))
	for i, idx := range data[:n] {
		off := plteChannels * int(idx)
		if off+plteChannels > len(palette) {
			continue
		}
		rgba := buf[i*nChannels:]
		rgba[0] = palette[off]
		rgba[1] = palette[off+1]
		rgba[2] = palette[off+2]
		if r.frame.HasTransparency && idx == r.frame.TransparentIndex {
			rgba[3] = 0x00
		} else {
			rgba[3] = 0xFF
		}
	}
	return n
}

func (r *Reader) channels() int {
	if r.colorOutput == TrueColor {
		return nChannels
	}
	return 1
}

// LineLength returns the byte length of one line of the current frame in
// the selected output format.
func (r *Reader) LineLength() int {
	return int(r.frame.Width) * r.channels()
}

// BufferSize returns the byte length of the current frame's full pixel
// buffer in the selected output format.
func (r *Reader) BufferSize() int {
	return r.LineLength() * int(r.frame.Height)
}

// Palette returns the color table in effect for the current frame: its
// local table if it has one, the global table otherwise.
func (r *Reader) Palette() []byte {
	if r.frame.Palette != nil {
		return r.frame.Palette
	}
	return r.globalPalette
}

// GlobalPalette returns the stream's global color table, or nil.
func (r *Reader) GlobalPalette() []byte { return r.globalPalette }

// Width returns the logical screen width.
func (r *Reader) Width() uint16 { return r.d.decoder.Width() }

// Height returns the logical screen height.
func (r *Reader) Height() uint16 { return r.d.decoder.Height() }

// Version returns the stream's format version, "87a" or "89a".
func (r *Reader) Version() string { return r.d.decoder.Version() }

// BackgroundIndex returns the background color's index into the global
// color table.
func (r *Reader) BackgroundIndex() uint8 { return r.d.decoder.BackgroundIndex() }

// LastExt returns the tag, captured payload and completeness of the most
// recent extension. Payloads are captured only when SaveExtensions was
// set on the Decoder.
func (r *Reader) LastExt() (byte, []byte, bool) { return r.d.decoder.LastExt() }

// DecodeAll decodes a whole stream and returns every frame.
func DecodeAll(r io.Reader) (*GIF, error) {
	rd, err := NewDecoder(r).ReadInfo()
	if err != nil {
		return nil, err
	}
	if err := rd.ReadToEnd(); err != nil {
		return nil, err
	}
	return &GIF{
		Width:           rd.Width(),
		Height:          rd.Height(),
		GlobalPalette:   rd.GlobalPalette(),
		BackgroundIndex: rd.BackgroundIndex(),
		Frames:          rd.Frames(),
	}, nil
}
