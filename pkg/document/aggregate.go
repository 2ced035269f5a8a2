package document

import (
	"bytes"
	"encoding/xml"
	"strconv"
)

// ResultsElement is the root element of an aggregated document.
const ResultsElement = "results"

// Aggregate wraps fragments, in order, into one well-formed document. Zero
// fragments produce an empty results element.
func Aggregate(fragments []Fragment, tag string) []byte {
	size := len(xml.Header) + 64
	for _, f := range fragments {
		size += len(f) + 1
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.WriteString(xml.Header)
	buf.WriteString("<" + ResultsElement + ` resource="`)
	xml.EscapeText(&buf, []byte(tag)) //nolint:errcheck // bytes.Buffer writes do not fail
	buf.WriteString(`" count="` + strconv.Itoa(len(fragments)) + `">`)
	for _, f := range fragments {
		buf.WriteByte('\n')
		buf.Write(f)
	}
	buf.WriteString("\n</" + ResultsElement + ">\n")
	return buf.Bytes()
}
