package shapefile

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// codePages maps the numeric code pages and ESRI labels found in .cpg files
// to WHATWG encoding labels.
var codePages = map[string]string{
	"65001": "utf-8",
	"936":   "gbk",
	"950":   "big5",
	"932":   "shift_jis",
	"949":   "euc-kr",
	"1250":  "windows-1250",
	"1251":  "windows-1251",
	"1252":  "windows-1252",
	"1253":  "windows-1253",
	"1254":  "windows-1254",
	"1255":  "windows-1255",
	"1256":  "windows-1256",
	"1257":  "windows-1257",
	"1258":  "windows-1258",
	"866":   "ibm866",
	"88592": "iso-8859-2",
	"88595": "iso-8859-5",
	"88597": "iso-8859-7",
	"88599": "iso-8859-9",
	"cp936": "gbk",
	"ansi":  "windows-1252",
}

// LookupEncoding returns the text encoding named by a .cpg label or an
// encoding name such as "UTF-8", "GBK", "1252" or "ISO 8859-1".
func LookupEncoding(label string) (encoding.Encoding, string, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return unicode.UTF8, "utf-8", nil
	}

	switch compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key); compact {
	case "437", "cp437", "ibm437":
		return charmap.CodePage437, "ibm437", nil
	case "850", "cp850", "ibm850":
		return charmap.CodePage850, "ibm850", nil
	case "88591", "iso88591", "latin1":
		// WHATWG treats latin1 as windows-1252
		return charmap.ISO8859_1, "iso-8859-1", nil
	default:
		if name, ok := codePages[compact]; ok {
			key = name
		} else if strings.HasPrefix(compact, "iso8859") {
			key = "iso-8859-" + strings.TrimPrefix(compact, "iso8859")
		}
	}

	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported encoding %q", label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = key
	}
	return enc, name, nil
}

// decoder converts DBF bytes to UTF-8 strings.
type decoder struct {
	dec *encoding.Decoder
}

func newDecoder(enc encoding.Encoding) decoder {
	return decoder{dec: enc.NewDecoder()}
}

// String decodes s, falling back to the raw text when it is not valid
// in the encoding.
func (d decoder) String(s string) string {
	out, err := d.dec.String(s)
	if err != nil {
		return s
	}
	return out
}
