// Package document slices LIMS XML responses into per-resource fragments
// and wraps fragments back into a single results document.
//
// Fragments are cut from the response bytes rather than re-encoded, so
// namespace prefixes such as "con:" survive untouched. Declarations made on an
// ancestor for a prefix the fragment uses are copied onto its start tag.
package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedDocument is returned when a body is not well-formed XML.
var ErrMalformedDocument = errors.New("malformed xml document")

// NextPageElement is the element that carries a listing's next-page cursor.
const NextPageElement = "next-page"

// Fragment is the raw XML of one element.
type Fragment []byte

func (f Fragment) String() string {
	return string(f)
}

// Page is a parsed listing page.
type Page struct {
	Fragments []Fragment

	// Next is the uri of the following page; empty when the listing is exhausted.
	Next string
}

// ParsePage extracts every outermost element named tag and the next-page
// cursor from body in a single pass. A prefixed tag ("con:container") must
// match prefix and local name; an unprefixed tag matches on local name.
func ParsePage(body []byte, tag string) (Page, error) {
	var page Page
	matchTag := nameMatcher(tag)
	err := scan(body, func(depth int, start xml.StartElement) bool {
		if page.Next == "" && start.Name.Local == NextPageElement {
			page.Next = attr(start, "uri")
		}
		return matchTag(start.Name)
	}, func(f Fragment) {
		page.Fragments = append(page.Fragments, f)
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

// Extract returns every outermost element named tag, in document order.
func Extract(body []byte, tag string) ([]Fragment, error) {
	page, err := ParsePage(body, tag)
	if err != nil {
		return nil, err
	}
	return page.Fragments, nil
}

// Root returns the root element of body.
func Root(body []byte) (Fragment, error) {
	var root Fragment
	err := scan(body, func(depth int, _ xml.StartElement) bool {
		return depth == 0
	}, func(f Fragment) {
		root = f
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// NextPage returns the next-page cursor of a listing, if any.
func NextPage(body []byte) (string, bool, error) {
	var next string
	err := scan(body, func(_ int, start xml.StartElement) bool {
		if next == "" && start.Name.Local == NextPageElement {
			next = attr(start, "uri")
		}
		return false
	}, nil)
	if err != nil {
		return "", false, err
	}
	return next, next != "", nil
}

func nameMatcher(tag string) func(xml.Name) bool {
	prefix, local := "", tag
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		prefix, local = tag[:i], tag[i+1:]
	}
	return func(n xml.Name) bool {
		return n.Local == local && (prefix == "" || n.Space == prefix)
	}
}

func attr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

type frame struct {
	name  xml.Name
	decls []xml.Attr
}

// scan walks body with RawToken so prefixes stay as written. match is called
// for every start element outside an already matched one; emit receives each
// matched element.
func scan(body []byte, match func(depth int, start xml.StartElement) bool, emit func(Fragment)) error {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		stack      []frame
		start      int64 = -1
		startDepth int
		inherited  []xml.Attr
		used       map[string]bool
		sawRoot    bool
	)

	for {
		off := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if sawRoot {
					return fmt.Errorf("%w: multiple root elements", ErrMalformedDocument)
				}
				sawRoot = true
			}
			if start < 0 && match(len(stack), t) {
				start = off
				startDepth = len(stack)
				inherited = missingDecls(stack, t.Attr)
				used = make(map[string]bool)
			}
			if start >= 0 {
				markUsed(used, t)
			}
			stack = append(stack, frame{name: t.Name, decls: namespaceDecls(t.Attr)})

		case xml.EndElement:
			if len(stack) == 0 || stack[len(stack)-1].name != t.Name {
				return fmt.Errorf("%w: unexpected end element %s", ErrMalformedDocument, qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
			if start >= 0 && len(stack) == startDepth {
				if emit != nil {
					emit(withDecls(body[start:dec.InputOffset()], usedDecls(inherited, used)))
				}
				start = -1
			}
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed element %s", ErrMalformedDocument, qualified(stack[len(stack)-1].name))
	}
	if !sawRoot {
		return fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}
	return nil
}

func isNamespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

func namespaceDecls(attrs []xml.Attr) []xml.Attr {
	var out []xml.Attr
	for _, a := range attrs {
		if isNamespaceDecl(a) {
			out = append(out, a)
		}
	}
	return out
}

// missingDecls returns the declarations in scope from ancestors that the
// element does not redeclare itself. Inner declarations shadow outer ones.
func missingDecls(stack []frame, own []xml.Attr) []xml.Attr {
	declared := make(map[xml.Name]bool)
	for _, a := range own {
		if isNamespaceDecl(a) {
			declared[a.Name] = true
		}
	}

	var out []xml.Attr
	for i := len(stack) - 1; i >= 0; i-- {
		for _, a := range stack[i].decls {
			if declared[a.Name] {
				continue
			}
			declared[a.Name] = true
			out = append(out, a)
		}
	}
	return out
}

func markUsed(used map[string]bool, start xml.StartElement) {
	used[start.Name.Space] = true
	for _, a := range start.Attr {
		if a.Name.Space != "" && a.Name.Space != "xmlns" && a.Name.Space != "xml" {
			used[a.Name.Space] = true
		}
	}
}

// usedDecls keeps the declarations whose prefix the fragment refers to. The
// default namespace declaration maps to the empty prefix.
func usedDecls(decls []xml.Attr, used map[string]bool) []xml.Attr {
	var out []xml.Attr
	for _, a := range decls {
		prefix := ""
		if a.Name.Space == "xmlns" {
			prefix = a.Name.Local
		}
		if used[prefix] {
			out = append(out, a)
		}
	}
	return out
}

// withDecls copies raw and inserts decls right after the element name.
func withDecls(raw []byte, decls []xml.Attr) Fragment {
	if len(decls) == 0 {
		return append(Fragment(nil), raw...)
	}

	nameEnd := 1
	for nameEnd < len(raw) && !isNameTerminator(raw[nameEnd]) {
		nameEnd++
	}

	var buf bytes.Buffer
	buf.Grow(len(raw) + 64*len(decls))
	buf.Write(raw[:nameEnd])
	for _, a := range decls {
		buf.WriteByte(' ')
		buf.WriteString(qualified(a.Name))
		buf.WriteString(`="`)
		xml.EscapeText(&buf, []byte(a.Value)) //nolint:errcheck // bytes.Buffer writes do not fail
		buf.WriteByte('"')
	}
	buf.Write(raw[nameEnd:])
	return Fragment(buf.Bytes())
}

func isNameTerminator(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '/', '>':
		return true
	}
	return false
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
