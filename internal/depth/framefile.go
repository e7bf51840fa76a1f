package depth

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/tphakala/soundscape-go/internal/errors"
	"github.com/tphakala/soundscape-go/internal/mapper"
)

// frameFileHeaderSize is the fixed header of a raw frame stream: two
// little-endian uint32 values, width then height. Frames of
// width*height float32 values follow back to back.
const frameFileHeaderSize = 8

// maxFrameDim guards against opening a corrupt stream and allocating
// gigabytes for a single frame.
const maxFrameDim = 8192

// FrameFile replays a recorded raw depth stream, looping back to the first
// frame when the file runs out.
type FrameFile struct {
	f      *os.File
	width  int
	height int
	buf    []byte
}

// OpenFrameFile opens a raw frame stream and validates its header.
func OpenFrameFile(path string) (*FrameFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("depth").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var header [frameFileHeaderSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		_ = f.Close()
		return nil, errors.Newf("failed to read frame stream header: %v", err).
			Component("depth").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	width := int(binary.LittleEndian.Uint32(header[0:4]))
	height := int(binary.LittleEndian.Uint32(header[4:8]))
	if width <= 0 || height <= 0 || width > maxFrameDim || height > maxFrameDim {
		_ = f.Close()
		return nil, errors.Newf("invalid frame dimensions %dx%d", width, height).
			Component("depth").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	return &FrameFile{
		f:      f,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*4),
	}, nil
}

// Next reads the next frame, rewinding past the header when the stream is
// exhausted. A stream holding no complete frame is an error.
func (p *FrameFile) Next(ctx context.Context) (*mapper.DepthFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, err := io.ReadFull(p.f, p.buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if _, err := p.f.Seek(frameFileHeaderSize, io.SeekStart); err != nil {
			return nil, errors.New(err).
				Component("depth").
				Category(errors.CategoryFileIO).
				Build()
		}
		if _, err = io.ReadFull(p.f, p.buf); err != nil {
			return nil, errors.Newf("frame stream holds no complete frame: %v", err).
				Component("depth").
				Category(errors.CategoryValidation).
				Build()
		}
	} else if err != nil {
		return nil, errors.New(err).
			Component("depth").
			Category(errors.CategoryFileIO).
			Build()
	}

	frame := &mapper.DepthFrame{
		Width:  p.width,
		Height: p.height,
		Data:   make([]float32, p.width*p.height),
	}
	for i := range frame.Data {
		frame.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(p.buf[i*4:]))
	}
	return frame, nil
}

// Close releases the underlying file.
func (p *FrameFile) Close() error {
	return p.f.Close()
}
