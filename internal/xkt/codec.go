package xkt

import (
	"bytes"
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/klauspost/compress/zlib"
)

// deflate compresses one element stream. Streams are compressed
// independently so a reader can inflate only what it needs.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.New("compressing stream failed").
			WithType(ErrTypeCodec).
			Wrap(err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.New("finishing stream compression failed").
			WithType(ErrTypeCodec).
			Wrap(err)
	}
	return buf.Bytes(), nil
}

func inflate(data []byte, stream string) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("stream is not valid zlib data").
			WithType(ErrTypeCodec).
			WithTag("stream", stream).
			Wrap(err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New("decompressing stream failed").
			WithType(ErrTypeCodec).
			WithTag("stream", stream).
			Wrap(err)
	}
	return out, nil
}
