package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encodings accepted by Options.Encoding.
const (
	EncodingAuto    = "auto"
	EncodingUTF8    = "utf-8"
	EncodingLatin1  = "latin-1"
	EncodingWin1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// detectEncoding inspects a leading sample of the file. A UTF-8 BOM or a
// sample that decodes cleanly as UTF-8 means UTF-8; anything else is treated
// as Latin-1, which accepts every byte sequence.
func detectEncoding(sample []byte) string {
	if bytes.HasPrefix(sample, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(trimPartialRune(sample)) {
		return EncodingUTF8
	}
	return EncodingLatin1
}

// trimPartialRune drops an incomplete multi-byte sequence cut off at the end
// of the sample so it does not look like invalid UTF-8.
func trimPartialRune(sample []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(sample); i++ {
		b := sample[len(sample)-i]
		if b < 0x80 {
			return sample
		}
		if b >= 0xC0 {
			// Start byte of a sequence that may be cut short.
			if !utf8.Valid(sample[len(sample)-i:]) {
				return sample[:len(sample)-i]
			}
			return sample
		}
	}
	return sample
}

// decodingReader wraps r so that its output is UTF-8.
func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case EncodingUTF8:
		return r, nil
	case EncodingLatin1, "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case EncodingWin1252:
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// sniffDelimiter picks ',' or ';' by frequency in the sample. Exports from
// spreadsheet tools localized for decimal-comma regions use ';'.
func sniffDelimiter(sample []byte) rune {
	commas := bytes.Count(sample, []byte{','})
	semis := bytes.Count(sample, []byte{';'})
	if semis > commas {
		return ';'
	}
	return ','
}
