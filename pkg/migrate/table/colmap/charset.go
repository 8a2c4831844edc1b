package colmap

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// firebird connection character sets that are not utf-8 on the wire
var charsets = map[string]encoding.Encoding{
	"ISO8859_1":  charmap.ISO8859_1,
	"ISO8859_2":  charmap.ISO8859_2,
	"ISO8859_3":  charmap.ISO8859_3,
	"ISO8859_4":  charmap.ISO8859_4,
	"ISO8859_5":  charmap.ISO8859_5,
	"ISO8859_6":  charmap.ISO8859_6,
	"ISO8859_7":  charmap.ISO8859_7,
	"ISO8859_8":  charmap.ISO8859_8,
	"ISO8859_9":  charmap.ISO8859_9,
	"ISO8859_13": charmap.ISO8859_13,
	"WIN1250":    charmap.Windows1250,
	"WIN1251":    charmap.Windows1251,
	"WIN1252":    charmap.Windows1252,
	"WIN1253":    charmap.Windows1253,
	"WIN1254":    charmap.Windows1254,
	"WIN1255":    charmap.Windows1255,
	"WIN1256":    charmap.Windows1256,
	"WIN1257":    charmap.Windows1257,
	"WIN1258":    charmap.Windows1258,
	"KOI8R":      charmap.KOI8R,
	"KOI8U":      charmap.KOI8U,
	"DOS437":     charmap.CodePage437,
	"DOS850":     charmap.CodePage850,
	"DOS852":     charmap.CodePage852,
	"DOS866":     charmap.CodePage866,
	"SJIS_0208":  japanese.ShiftJIS,
	"EUCJ_0208":  japanese.EUCJP,
	"KSC_5601":   korean.EUCKR,
	"BIG_5":      traditionalchinese.Big5,
	"GB_2312":    simplifiedchinese.GBK,
}

// TextDecoder : turns text in the connection charset into utf-8.
// A nil decoder means the bytes are already utf-8 (UTF8, UNICODE_FSS, NONE, OCTETS).
type TextDecoder struct {
	charset string
	enc     encoding.Encoding
}

// NewTextDecoder : errors out on a charset it has no table for
func NewTextDecoder(charset string) (*TextDecoder, error) {
	name := strings.ToUpper(strings.TrimSpace(charset))
	switch name {
	case "", "UTF8", "UNICODE_FSS", "NONE", "OCTETS":
		return &TextDecoder{charset: name}, nil
	}
	enc, ok := charsets[name]
	if !ok {
		return nil, fmt.Errorf("Unsupported firebird charset %s", charset)
	}
	return &TextDecoder{charset: name, enc: enc}, nil
}

// Decode : s holds raw bytes in the connection charset
func (d *TextDecoder) Decode(s string) (string, error) {
	if d == nil || d.enc == nil {
		return s, nil
	}
	res, err := d.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("decoding %s text : %w", d.charset, err)
	}
	return res, nil
}
