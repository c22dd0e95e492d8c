// Package encoding normalises uploaded text files to UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names reported by Detect.
const (
	UTF8        = "UTF-8"
	UTF16LE     = "UTF-16LE"
	UTF16BE     = "UTF-16BE"
	Windows1252 = "windows-1252"
	ISO88599    = "ISO-8859-9"
)

const peekSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decoders maps chardet results to the decoders we trust for spreadsheet exports.
var decoders = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-15":  charmap.ISO8859_15,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// Decoded is a UTF-8 view of an input together with the charset it was
// decoded from.
type Decoded struct {
	io.Reader
	Charset string
}

// Detect works out the input's encoding and returns a reader producing UTF-8.
//
// Detection order:
//  1. Byte order mark (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Valid UTF-8 is passed through
//  3. chardet heuristics, for the charsets in decoders
//  4. Windows-1252, which spreadsheet tools default to
func Detect(r io.Reader) (*Decoded, error) {
	br := bufio.NewReaderSize(r, peekSize)

	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return &Decoded{Reader: br, Charset: UTF8}, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return &Decoded{Reader: transform.NewReader(br, dec), Charset: UTF16LE}, nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return &Decoded{Reader: transform.NewReader(br, dec), Charset: UTF16BE}, nil
	}

	if validUTF8Prefix(buf) {
		return &Decoded{Reader: br, Charset: UTF8}, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		if enc, ok := decoders[result.Charset]; ok {
			name := result.Charset
			if name == "ISO-8859-1" {
				name = Windows1252
			}

			return &Decoded{Reader: transform.NewReader(br, enc.NewDecoder()), Charset: name}, nil
		}
	}

	return &Decoded{Reader: transform.NewReader(br, charmap.Windows1252.NewDecoder()), Charset: Windows1252}, nil
}

// NewUTF8Reader is Detect without the charset.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	d, err := Detect(r)
	if err != nil {
		return nil, err
	}

	return d.Reader, nil
}

// validUTF8Prefix reports whether buf is UTF-8, ignoring a rune cut off by the
// end of the peek window.
func validUTF8Prefix(buf []byte) bool {
	if utf8.Valid(buf) {
		return true
	}

	for i := 1; i < utf8.UTFMax && i <= len(buf); i++ {
		if utf8.Valid(buf[:len(buf)-i]) && !utf8.FullRune(buf[len(buf)-i:]) {
			return true
		}
	}

	return false
}
