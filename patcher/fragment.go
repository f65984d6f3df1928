package patcher

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/heyleao/mp-mods-ets2/common"
)

type srcEncoding int

const (
	encUTF8 srcEncoding = iota
	encUTF8BOM
	encUTF16LittleEndian
	encUTF16BigEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUTF8BOM:
		return "utf-8 (bom)"
	case encUTF16LittleEndian:
		return "utf-16le"
	case encUTF16BigEndian:
		return "utf-16be"
	default:
		return "utf-8"
	}
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Fragment is decoded text of a single manifest. It remembers everything
// needed to encode unchanged lines back to the same bytes: source encoding
// and terminator of every line.
type Fragment struct {
	lines []string
	terms []string
	enc   srcEncoding
}

// Decode prepares fragment from raw file or archive entry content. Binary and
// encrypted SII files as well as anything which is not valid text produce
// error wrapping common.ErrDecode.
func Decode(data []byte) (*Fragment, error) {
	if kind, ok := detectBinary(data); ok {
		return nil, fmt.Errorf("%w: binary content (%s)", common.ErrDecode, kind.MIME.Value)
	}

	f := &Fragment{}

	var (
		text []byte
		err  error
	)
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		f.enc, text = encUTF8BOM, data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE):
		f.enc = encUTF16LittleEndian
		text, err = f.codec().NewDecoder().Bytes(data)
	case bytes.HasPrefix(data, bomUTF16BE):
		f.enc = encUTF16BigEndian
		text, err = f.codec().NewDecoder().Bytes(data)
	default:
		f.enc, text = encUTF8, data
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDecode, f.enc, err)
	}
	if !utf8.Valid(text) {
		return nil, fmt.Errorf("%w: invalid %s sequence", common.ErrDecode, f.enc)
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("%w: unexpected NUL character", common.ErrDecode)
	}

	f.split(string(text))
	return f, nil
}

func (f *Fragment) split(text string) {
	for len(text) > 0 {
		n := strings.IndexByte(text, '\n')
		if n < 0 {
			// last line without terminator
			f.lines = append(f.lines, text)
			f.terms = append(f.terms, "")
			return
		}
		line, term := text[:n], "\n"
		if strings.HasSuffix(line, "\r") {
			line, term = line[:len(line)-1], "\r\n"
		}
		f.lines = append(f.lines, line)
		f.terms = append(f.terms, term)
		text = text[n+1:]
	}
}

// codec returns UTF-16 codec which produces and expects BOM.
func (f *Fragment) codec() encoding.Encoding {
	if f.enc == encUTF16BigEndian {
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
}

// Lines returns fragment lines without terminators.
func (f *Fragment) Lines() []string {
	return f.lines
}

// HasMarker reports if fragment already has p's marker.
func (f *Fragment) HasMarker(p *Patcher) bool {
	return p.HasMarker(f.lines)
}

// Apply inserts marker line and reports if fragment changed. Inserted line
// gets terminator of the closing line it precedes.
func (f *Fragment) Apply(p *Patcher) bool {
	at, ok := p.insertionPoint(f.lines)
	if !ok {
		return false
	}
	term := f.terms[at]
	if len(term) == 0 {
		term = f.dominantTerm()
	}
	f.lines, _ = p.Patch(f.lines)
	f.terms = slices.Insert(f.terms, at, term)
	return true
}

func (f *Fragment) dominantTerm() string {
	var crlf, lf int
	for _, t := range f.terms {
		switch t {
		case "\r\n":
			crlf++
		case "\n":
			lf++
		}
	}
	if crlf > lf {
		return "\r\n"
	}
	return "\n"
}

// Encode returns fragment bytes in the original encoding.
func (f *Fragment) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if f.enc == encUTF8BOM {
		buf.Write(bomUTF8)
	}
	for i, line := range f.lines {
		buf.WriteString(line)
		buf.WriteString(f.terms[i])
	}

	switch f.enc {
	case encUTF16LittleEndian, encUTF16BigEndian:
		// UTF-16 encoder with ExpectBOM writes BOM
		out, err := f.codec().NewEncoder().Bytes(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("unable to encode %s: %w", f.enc, err)
		}
		return out, nil
	default:
		return buf.Bytes(), nil
	}
}
