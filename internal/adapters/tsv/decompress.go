package tsv

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"os"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Compression identifies an input encoding by its magic bytes.
type Compression byte

const (
	None Compression = iota
	Gzip
	Zip
	XZ
	Zlib
	BZip2
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zip:
		return "zip"
	case XZ:
		return "xz"
	case Zlib:
		return "zlib"
	case BZip2:
		return "bzip2"
	default:
		return "none"
	}
}

var signatures = []struct {
	c   Compression
	sig []byte
}{
	{Gzip, []byte{0x1f, 0x8b, 0x08}},
	{Zip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{XZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{BZip2, []byte{0x42, 0x5a, 0x68}},
}

// Detect reports the compression of a stream from its first bytes.
func Detect(head []byte) Compression {
	for _, s := range signatures {
		if bytes.HasPrefix(head, s.sig) {
			return s.c
		}
	}
	// zlib: CMF 0x78 and a header checksum divisible by 31
	if len(head) >= 2 && head[0] == 0x78 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		return Zlib
	}
	return None
}

// Decompress wraps r so that compressed input is transparently decoded.
// Zip archives yield their first entry.
func Decompress(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, None, err
	}

	c := Detect(head)
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("gzip: %w", err)
		}
		return zr, c, nil
	case Zip:
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, c, fmt.Errorf("zip: %w", err)
		}
		return io.NopCloser(zr), c, nil
	case BZip2:
		return io.NopCloser(bzip2.NewReader(br)), c, nil
	case XZ:
		xr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, c, fmt.Errorf("xz: %w", err)
		}
		return io.NopCloser(xr), c, nil
	case Zlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("zlib: %w", err)
		}
		return zr, c, nil
	}
	return io.NopCloser(br), None, nil
}

// Open opens path and decompresses it if needed. Closing the returned
// reader closes the file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, _, err := Decompress(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileReader{ReadCloser: rc, f: f}, nil
}

type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r *fileReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
