// Copyright 2026 The gographics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gif

import (
	"github.com/gographics/gif/lzw"
)

// Progress is an ordered milestone of the incremental parse. A caller can
// drive a Reader up to a given milestone and stop, decoding only as much
// of the stream as it needs.
type Progress uint8

const (
	// ProgressStart means nothing has been decoded yet.
	ProgressStart Progress = iota
	// ProgressBlockStart means an image or extension block has begun.
	ProgressBlockStart
	// ProgressSubBlockFinished means an extension sub-block, or a whole
	// extension block, has been consumed.
	ProgressSubBlockFinished
	// ProgressDataStarted means a frame's metadata is complete and its
	// pixel data is being decompressed.
	ProgressDataStarted
	// ProgressDataEnd means the current frame's pixel data is fully
	// consumed.
	ProgressDataEnd
	// ProgressTrailer means the stream trailer was reached.
	ProgressTrailer
)

// DecodedKind tags a Decoded value.
type DecodedKind uint8

const (
	// DecodedNothing means more input is needed before anything new can
	// be reported.
	DecodedNothing DecodedKind = iota
	// DecodedBlockStart reports the tag of a block that just began.
	DecodedBlockStart
	// DecodedGlobalPalette reports that the global color table (possibly
	// empty) is complete.
	DecodedGlobalPalette
	// DecodedFrame reports that a frame's metadata is complete; its
	// pixel data follows.
	DecodedFrame
	// DecodedData reports a chunk of decompressed pixel index bytes.
	DecodedData
	// DecodedSubBlockFinished reports that an extension sub-block ended
	// with more sub-blocks following.
	DecodedSubBlockFinished
	// DecodedBlockFinished reports that an extension block ended.
	DecodedBlockFinished
	// DecodedDataEnd reports that the current frame's pixel data ended.
	DecodedDataEnd
	// DecodedTrailer reports the end of the stream.
	DecodedTrailer
)

// A Decoded describes what a call to StreamingDecoder.Update made
// available. Only the fields relevant to Kind are set. Slices and the
// Frame pointer borrow decoder-owned storage and are valid only until
// the next call to Update; callers that need them longer must copy.
type Decoded struct {
	Kind DecodedKind

	// Block is the block tag, for DecodedBlockStart.
	Block byte

	// ExtTag and ExtData describe an extension, for
	// DecodedSubBlockFinished and DecodedBlockFinished. ExtData is nil
	// unless SaveExtensions is set.
	ExtTag  byte
	ExtData []byte

	// Palette is the global color table, for DecodedGlobalPalette.
	Palette []byte

	// Frame is the frame whose metadata just completed, for
	// DecodedFrame. Its Pixels are not yet populated.
	Frame *Frame

	// Data is a chunk of decompressed pixel indices, for DecodedData.
	Data []byte
}

// Decoder states. Per-state data (byte counts, partial values) lives in
// the StreamingDecoder fields alongside the state tag, so the machine can
// be suspended between any two input bytes and resumed later.
type decoderState uint8

const (
	stateMagic decoderState = iota
	stateU16               // expecting the low byte of a 16-bit value
	stateU16High           // expecting the high byte of a 16-bit value
	stateByte              // expecting a single-byte field
	stateGlobalPalette
	stateBlockStart
	stateBlockEnd
	stateExtensionType
	stateExtensionBlock
	stateSkipBlock
	stateLocalPalette
	stateLzwInit
	stateDecodeSubBlock
	stateFrameDecoded
	stateDone
)

// Which 16-bit field stateU16/stateU16High is reading.
type u16Value uint8

const (
	u16ScreenWidth u16Value = iota
	u16ScreenHeight
	u16Delay
	u16ImageLeft
	u16ImageTop
	u16ImageWidth
	u16ImageHeight
)

// Which single-byte field stateByte is reading.
type byteValue uint8

const (
	byteGlobalFlags byteValue = iota
	byteBackground
	byteAspectRatio
	byteControlFlags
	byteImageFlags
	byteTransparentIdx
	byteCodeSize
)

// StreamingDecoder is a resumable GIF parser. Feed it input with Update;
// it consumes as much as it can, reports what became decodable, and can
// be resumed at any byte boundary, including inside multi-byte fields and
// compressed sub-blocks.
type StreamingDecoder struct {
	// SaveExtensions makes the decoder retain the payload bytes of
	// text, comment and application extensions and report them in
	// events and LastExt. When false (the default) extension payloads
	// are skipped.
	SaveExtensions bool

	state      decoderState
	u16Target  u16Value
	u16Low     byte
	byteTarget byteValue
	magic      [6]byte
	magicLen   int

	// remaining counts the bytes left in the palette, extension
	// sub-block or compressed sub-block currently being consumed.
	remaining int

	terminator  byte
	minCodeSize byte

	lzw *lzw.Decoder

	version         string
	width, height   uint16
	backgroundIndex uint8
	globalPalette   []byte

	extTag      byte
	extData     []byte
	extComplete bool

	current  *Frame
	progress Progress
}

// NewStreamingDecoder returns a decoder positioned at the start of a
// stream.
func NewStreamingDecoder() *StreamingDecoder {
	return &StreamingDecoder{
		state:       stateMagic,
		extComplete: true,
	}
}

// Version returns "87a" or "89a" once the header has been decoded.
func (d *StreamingDecoder) Version() string { return d.version }

// Width returns the logical screen width.
func (d *StreamingDecoder) Width() uint16 { return d.width }

// Height returns the logical screen height.
func (d *StreamingDecoder) Height() uint16 { return d.height }

// BackgroundIndex returns the background color's index into the global
// color table.
func (d *StreamingDecoder) BackgroundIndex() uint8 { return d.backgroundIndex }

// GlobalPalette returns the global color table as RGB triples, or nil if
// the stream has none. It must not be modified.
func (d *StreamingDecoder) GlobalPalette() []byte { return d.globalPalette }

// Progress returns the most recently reached parse milestone.
func (d *StreamingDecoder) Progress() Progress { return d.progress }

// LastExt returns the tag of the most recent extension, its captured
// payload (empty unless SaveExtensions is set), and whether the extension
// is complete.
func (d *StreamingDecoder) LastExt() (byte, []byte, bool) {
	return d.extTag, d.extData, d.extComplete
}

// CurrentFrame returns the frame being assembled, or nil if none is.
func (d *StreamingDecoder) CurrentFrame() *Frame { return d.current }

// Update feeds buf to the decoder. It returns the number of bytes
// consumed and the first thing that became decodable, or a
// DecodedNothing event if all of buf was consumed without completing
// anything. After a DecodedTrailer event the decoder is in a terminal
// state and further calls consume nothing. Errors of type FormatError
// are fatal: the decoder must not be fed again after one.
func (d *StreamingDecoder) Update(buf []byte) (int, Decoded, error) {
	total := len(buf)
	for len(buf) > 0 && d.state != stateDone {
		n, ev, err := d.nextState(buf)
		if err != nil {
			return total - len(buf), Decoded{}, err
		}
		buf = buf[n:]
		if ev.Kind != DecodedNothing {
			return total - len(buf), ev, nil
		}
	}
	return total - len(buf), Decoded{}, nil
}

// nextState advances the machine by one transition, looking at buf[0]
// (and, for bulk states, up to the whole of buf). It reports how many
// bytes it consumed, between 0 and len(buf).
func (d *StreamingDecoder) nextState(buf []byte) (int, Decoded, error) {
	b := buf[0]

	switch d.state {
	case stateMagic:
		if d.magicLen < 6 {
			d.magic[d.magicLen] = b
			d.magicLen++
			return 1, Decoded{}, nil
		}
		if string(d.magic[:3]) != "GIF" {
			return 0, Decoded{}, FormatError("malformed GIF header")
		}
		switch string(d.magic[3:]) {
		case "87a", "89a":
			d.version = string(d.magic[3:])
		default:
			return 0, Decoded{}, FormatError("unsupported GIF version")
		}
		d.u16Target = u16ScreenWidth
		d.u16Low = b
		d.state = stateU16High
		return 1, Decoded{}, nil

	case stateU16:
		d.u16Low = b
		d.state = stateU16High
		return 1, Decoded{}, nil

	case stateU16High:
		v := uint16(b)<<8 | uint16(d.u16Low)
		switch d.u16Target {
		case u16ScreenWidth:
			d.width = v
			d.u16Target = u16ScreenHeight
			d.state = stateU16
		case u16ScreenHeight:
			d.height = v
			d.byteTarget = byteGlobalFlags
			d.state = stateByte
		case u16Delay:
			d.capture(d.u16Low)
			d.capture(b)
			d.current.Delay = v
			d.byteTarget = byteTransparentIdx
			d.state = stateByte
		case u16ImageLeft:
			d.current.Left = v
			d.u16Target = u16ImageTop
			d.state = stateU16
		case u16ImageTop:
			d.current.Top = v
			d.u16Target = u16ImageWidth
			d.state = stateU16
		case u16ImageWidth:
			d.current.Width = v
			d.u16Target = u16ImageHeight
			d.state = stateU16
		case u16ImageHeight:
			d.current.Height = v
			d.byteTarget = byteImageFlags
			d.state = stateByte
		}
		return 1, Decoded{}, nil

	case stateByte:
		return d.nextByteState(b)

	case stateGlobalPalette:
		if d.remaining > 0 {
			n := min(d.remaining, len(buf))
			d.globalPalette = append(d.globalPalette, buf[:n]...)
			d.remaining -= n
			return n, Decoded{}, nil
		}
		d.state = stateBlockStart
		return 0, Decoded{Kind: DecodedGlobalPalette, Palette: d.globalPalette}, nil

	case stateBlockStart:
		// b is the block tag.
		switch b {
		case BlockImage:
			d.addFrame()
			d.u16Target = u16ImageLeft
			d.state = stateU16
			d.progress = ProgressBlockStart
			return 1, Decoded{Kind: DecodedBlockStart, Block: BlockImage}, nil
		case BlockExtension:
			d.state = stateExtensionType
			d.progress = ProgressBlockStart
			return 1, Decoded{Kind: DecodedBlockStart, Block: BlockExtension}, nil
		case BlockTrailer:
			d.state = stateDone
			d.progress = ProgressTrailer
			return 1, Decoded{Kind: DecodedTrailer}, nil
		default:
			return 0, Decoded{}, FormatError("unknown block type encountered")
		}

	case stateBlockEnd:
		if d.terminator != 0 {
			return 0, Decoded{}, FormatError("expected block terminator not found")
		}
		d.state = stateBlockStart
		return 0, Decoded{}, nil

	case stateExtensionType:
		d.extTag = b
		d.state = stateExtensionBlock
		return 1, Decoded{}, nil

	case stateExtensionBlock:
		// b is the first sub-block's length byte.
		d.extData = d.extData[:0]
		d.extComplete = true
		switch d.extTag {
		case ExtControl:
			d.addFrame()
			if b != 4 {
				return 0, Decoded{}, FormatError("control extension has wrong length")
			}
			d.byteTarget = byteControlFlags
			d.state = stateByte
		case ExtText, ExtComment, ExtApplication:
			d.remaining = int(b)
			d.state = stateSkipBlock
		default:
			return 0, Decoded{}, FormatError("unknown extension block encountered")
		}
		return 1, Decoded{}, nil

	case stateSkipBlock:
		if d.remaining > 0 {
			n := min(d.remaining, len(buf))
			if d.SaveExtensions {
				d.extData = append(d.extData, buf[:n]...)
			}
			d.remaining -= n
			return n, Decoded{}, nil
		}
		// b is the next length byte; zero ends the block.
		if b == 0 {
			d.extComplete = true
			d.terminator = 0
			d.state = stateBlockEnd
			d.progress = ProgressSubBlockFinished
			return 1, Decoded{Kind: DecodedBlockFinished, ExtTag: d.extTag, ExtData: d.extData}, nil
		}
		d.extComplete = false
		d.remaining = int(b)
		d.progress = ProgressSubBlockFinished
		return 1, Decoded{Kind: DecodedSubBlockFinished, ExtTag: d.extTag, ExtData: d.extData}, nil

	case stateLocalPalette:
		if d.remaining > 0 {
			n := min(d.remaining, len(buf))
			d.current.Palette = append(d.current.Palette, buf[:n]...)
			d.remaining -= n
			return n, Decoded{}, nil
		}
		d.minCodeSize = b
		d.state = stateLzwInit
		return 1, Decoded{}, nil

	case stateLzwInit:
		// b is the first compressed sub-block's length byte.
		lz, err := lzw.NewDecoder(int(d.minCodeSize))
		if err != nil {
			return 0, Decoded{}, FormatError("invalid minimum code size")
		}
		d.lzw = lz
		d.remaining = int(b)
		d.state = stateDecodeSubBlock
		d.progress = ProgressDataStarted
		return 1, Decoded{Kind: DecodedFrame, Frame: d.current}, nil

	case stateDecodeSubBlock:
		if d.remaining > 0 {
			n := min(d.remaining, len(buf))
			consumed, data, err := d.lzw.DecodeBytes(buf[:n])
			if err != nil {
				return consumed, Decoded{}, FormatError(err.Error())
			}
			d.remaining -= consumed
			return consumed, Decoded{Kind: DecodedData, Data: data}, nil
		}
		if b != 0 {
			// Decompressor state carries over to the next sub-block.
			d.remaining = int(b)
			return 1, Decoded{}, nil
		}
		// End of the image data.
		d.current = nil
		d.lzw = nil
		d.state = stateFrameDecoded
		d.progress = ProgressDataEnd
		return 0, Decoded{Kind: DecodedDataEnd}, nil

	case stateFrameDecoded:
		d.terminator = b
		d.state = stateBlockEnd
		return 1, Decoded{}, nil

	default: // stateDone
		return 0, Decoded{}, nil
	}
}

// nextByteState handles the states that read exactly one fixed-format
// byte. It always consumes one byte.
func (d *StreamingDecoder) nextByteState(b byte) (int, Decoded, error) {
	switch d.byteTarget {
	case byteGlobalFlags:
		if b&0x80 != 0 {
			d.remaining = plteChannels * (1 << ((b & 0x07) + 1))
			d.globalPalette = make([]byte, 0, d.remaining)
		} else {
			d.remaining = 0
		}
		d.byteTarget = byteBackground

	case byteBackground:
		d.backgroundIndex = b
		d.byteTarget = byteAspectRatio

	case byteAspectRatio:
		// The pixel aspect ratio is ignored.
		d.state = stateGlobalPalette

	case byteControlFlags:
		d.capture(b)
		if b&0x01 != 0 {
			// The index itself arrives a few bytes later.
			d.current.HasTransparency = true
		}
		d.current.NeedsUserInput = b&0x02 != 0
		dm := (b & 0x1C) >> 2
		if dm > uint8(DisposalPrevious) {
			return 0, Decoded{}, FormatError("unknown disposal method")
		}
		d.current.Disposal = DisposalMethod(dm)
		d.u16Target = u16Delay
		d.state = stateU16

	case byteTransparentIdx:
		d.capture(b)
		if d.current.HasTransparency {
			d.current.TransparentIndex = b
		}
		// The control extension body is done; only its terminating
		// zero-length sub-block remains.
		d.remaining = 0
		d.state = stateSkipBlock

	case byteImageFlags:
		d.current.Interlaced = b&0x40 != 0
		if b&0x80 != 0 {
			d.remaining = plteChannels * (1 << ((b & 0x07) + 1))
			d.current.Palette = make([]byte, 0, d.remaining)
			d.state = stateLocalPalette
		} else {
			d.byteTarget = byteCodeSize
		}

	case byteCodeSize:
		d.minCodeSize = b
		d.state = stateLzwInit
	}
	return 1, Decoded{}, nil
}

func (d *StreamingDecoder) capture(b byte) {
	if d.SaveExtensions {
		d.extData = append(d.extData, b)
	}
}

func (d *StreamingDecoder) addFrame() {
	if d.current == nil {
		d.current = &Frame{}
	}
}
