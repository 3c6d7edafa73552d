package mt940

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns statement bytes into text. Valid UTF-8 is kept; anything else
// is read as ISO-8859-1, which cannot fail. Line endings become "\n".
func Decode(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	var text string
	if utf8.Valid(raw) {
		text = string(raw)
	} else {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			decoded = bytes.ToValidUTF8(raw, []byte("?"))
		}
		text = string(decoded)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
