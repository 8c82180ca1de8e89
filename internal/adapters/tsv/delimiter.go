package tsv

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// DefaultDelimiter is used when detection finds nothing.
const DefaultDelimiter = '\t'

// DetectDelimiter returns the most likely field delimiter of sample.
// Comment lines are ignored; id headers such as #SampleID are kept.
func DetectDelimiter(sample []byte) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(withoutComments(sample)), '"')
	for _, c := range delimiters {
		if c != "" {
			return rune(c[0])
		}
	}
	return DefaultDelimiter
}

func withoutComments(data []byte) []byte {
	lines := bytes.SplitAfter(data, []byte("\n"))
	out := make([]byte, 0, len(data))
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if trimmed[0] == '#' && !keepHashLine(string(trimmed)) {
			continue
		}
		out = append(out, line...)
	}
	return out
}

func keepHashLine(line string) bool {
	if strings.HasPrefix(line, typesDirective) {
		return true
	}
	for _, h := range idHeadersExact {
		if strings.HasPrefix(line, h) {
			return true
		}
	}
	return false
}

type options struct {
	delimiter rune
}

// Option configures readers and writers.
type Option func(*options)

// WithDelimiter fixes the field delimiter, skipping detection. Zero means
// detect.
func WithDelimiter(r rune) Option {
	return func(o *options) {
		o.delimiter = r
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// delimiterFor returns the configured delimiter or detects one from data.
func (o options) delimiterFor(data []byte) rune {
	if o.delimiter != 0 {
		return o.delimiter
	}
	return DetectDelimiter(data)
}

func newReader(data []byte, delim rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r
}

func newWriter(buf *bytes.Buffer, delim rune) *csv.Writer {
	w := csv.NewWriter(buf)
	if delim != 0 {
		w.Comma = delim
	} else {
		w.Comma = DefaultDelimiter
	}
	return w
}
