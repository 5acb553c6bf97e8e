package shc

import (
	"bytes"
	"compress/flate"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Compress deflates the given text into a raw DEFLATE stream: no zlib
// header, no trailing checksum, as required by the JWS "zip": "DEF" contract.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "creating deflate writer")
	}
	if _, err = w.Write([]byte(text)); err != nil {
		return nil, errors.Wrap(err, "deflating payload")
	}
	if err = w.Close(); err != nil {
		return nil, errors.Wrap(err, "flushing deflate stream")
	}
	return buf.Bytes(), nil
}

// Decompress inflates a raw DEFLATE stream back into text. Different DEFLATE
// encoders may produce different bytes for the same input, so only the
// round-trip is guaranteed, not byte-identical compressed output.
func Decompress(data []byte) (string, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	inflated, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrapf(ErrMalformedPayload, "inflating payload: %s", err)
	}
	if !utf8.Valid(inflated) {
		return "", errors.Wrap(ErrMalformedPayload, "inflated payload is not valid UTF-8")
	}
	return string(inflated), nil
}
