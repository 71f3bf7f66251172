package csv

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by Decode.
const (
	EncUTF8BOM   = "utf-8-sig"
	EncUTF8      = "utf-8"
	EncUTF16     = "utf-16"
	EncCP1250    = "cp1250"
	EncISO8859_2 = "iso-8859-2"
	EncLatin1    = "latin1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// singleByte lists the legacy code pages tried when the input is not UTF-8,
// in preference order. Central European exports are usually CP1250.
var singleByte = []struct {
	name string
	enc  encoding.Encoding
}{
	{EncCP1250, charmap.Windows1250},
	{EncISO8859_2, charmap.ISO8859_2},
	{EncLatin1, charmap.ISO8859_1},
}

// Decode converts data to UTF-8 text and names the encoding it detected.
//
// Detection order:
//   - a UTF-8 BOM, then UTF-16 BOMs;
//   - valid UTF-8;
//   - the single-byte code page whose decoding contains the fewest
//     replacement characters and C1 control characters, ties going to the
//     earlier code page.
//
// Decode never fails: Latin-1 maps every byte.
func Decode(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), EncUTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(data); err == nil {
			return string(out), EncUTF16
		}
	}

	if utf8.Valid(data) {
		return string(data), EncUTF8
	}

	bestText, bestName, bestPenalty := "", "", -1
	for _, cand := range singleByte {
		out, err := cand.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(out)
		p := penalty(text)
		if bestPenalty < 0 || p < bestPenalty {
			bestText, bestName, bestPenalty = text, cand.name, p
		}
	}
	return bestText, bestName
}

// DecodeAs decodes data with a named encoding, bypassing detection.
func DecodeAs(data []byte, name string) (string, bool) {
	switch strings.ToLower(name) {
	case EncUTF8BOM:
		return string(bytes.TrimPrefix(data, bomUTF8)), true
	case EncUTF8, "utf8":
		return string(data), true
	}
	for _, cand := range singleByte {
		if strings.EqualFold(cand.name, name) {
			out, err := cand.enc.NewDecoder().Bytes(data)
			if err != nil {
				return "", false
			}
			return string(out), true
		}
	}
	return "", false
}

// penalty counts characters that indicate the wrong code page was used.
func penalty(s string) int {
	n := 0
	for _, r := range s {
		if r == utf8.RuneError || (r >= 0x80 && r <= 0x9F) {
			n++
		}
	}
	return n
}
