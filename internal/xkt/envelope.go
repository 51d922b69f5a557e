package xkt

import (
	"encoding/binary"
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Version is the package format version this codec reads and writes.
const Version = 6

// The envelope frames the compressed streams:
//
//	u32 version
//	u32 stream count
//	count x u32 compressed byte length
//	concatenated compressed stream bytes
//
// all little-endian.

// WriteEnvelope frames the ordered compressed streams into w.
func WriteEnvelope(w io.Writer, streams [][]byte) error {
	header := make([]uint32, 0, 2+len(streams))
	header = append(header, Version, uint32(len(streams)))
	for _, s := range streams {
		header = append(header, uint32(len(s)))
	}
	if _, err := w.Write(u32Bytes(header)); err != nil {
		return errors.New("writing envelope header failed").
			WithType(ErrTypeCodec).
			Wrap(err)
	}
	for _, s := range streams {
		if _, err := w.Write(s); err != nil {
			return errors.New("writing envelope stream failed").
				WithType(ErrTypeCodec).
				Wrap(err)
		}
	}
	return nil
}

// ReadEnvelope splits a framed package back into its compressed streams.
func ReadEnvelope(data []byte) ([][]byte, error) {
	if len(data) < 8 {
		return nil, errors.New("package too short for an envelope header").
			WithType(ErrTypeCodec).
			WithTag("bytes", len(data))
	}
	version := binary.LittleEndian.Uint32(data)
	if version != Version {
		return nil, errors.New("unsupported package version").
			WithType(ErrTypeVersionMismatch).
			WithTag("version", version).
			WithTag("supported", Version)
	}
	count := int(binary.LittleEndian.Uint32(data[4:]))
	if count != StreamCount {
		return nil, errors.New("unexpected stream count").
			WithType(ErrTypeCodec).
			WithTag("count", count)
	}

	headerLen := 8 + count*4
	if len(data) < headerLen {
		return nil, errors.New("package truncated inside envelope header").
			WithType(ErrTypeCodec).
			WithTag("bytes", len(data))
	}

	streams := make([][]byte, count)
	offset := headerLen
	for i := 0; i < count; i++ {
		length := int(binary.LittleEndian.Uint32(data[8+i*4:]))
		if offset+length > len(data) {
			return nil, errors.New("package truncated inside stream data").
				WithType(ErrTypeCodec).
				WithTag("stream", i)
		}
		streams[i] = data[offset : offset+length]
		offset += length
	}
	if offset != len(data) {
		return nil, errors.New("trailing bytes after final stream").
			WithType(ErrTypeCodec).
			WithTag("trailing", len(data)-offset)
	}
	return streams, nil
}
