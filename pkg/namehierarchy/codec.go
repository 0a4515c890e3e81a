package namehierarchy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Markers of the serialized form. Every marker starts with a TAB, which never
// appears unescaped inside a field.
const (
	metaMarker    = "\tm"
	elementMarker = "\tn"
	prefixMarker  = "\ts"
	postfixMarker = "\tp"
)

// ErrMalformedName is returned when a serialized name cannot be decoded.
var ErrMalformedName = errors.New("malformed serialized name")

// Serialize flattens h into its stored string form:
//
//	esc(delimiter) "\tm" count { "\tn" esc(name) "\ts" esc(prefix) "\tp" esc(postfix) }
//
// Fields are escaped so that backslashes become `\\` and TABs become `\t`.
func Serialize(h NameHierarchy) string {
	return serialize(h, 0, len(h.Elements))
}

// SerializeRange serializes only the elements in [start, end).
func SerializeRange(h NameHierarchy, start, end int) (string, error) {
	if start < 0 || end > len(h.Elements) || start > end {
		return "", fmt.Errorf("element range [%d, %d) out of bounds for %d elements", start, end, len(h.Elements))
	}
	return serialize(h, start, end), nil
}

func serialize(h NameHierarchy, start, end int) string {
	var b strings.Builder
	b.WriteString(escape(h.Delimiter))
	b.WriteString(metaMarker)
	b.WriteString(strconv.Itoa(end - start))
	for _, e := range h.Elements[start:end] {
		b.WriteString(elementMarker)
		b.WriteString(escape(e.Name))
		b.WriteString(prefixMarker)
		b.WriteString(escape(e.Prefix))
		b.WriteString(postfixMarker)
		b.WriteString(escape(e.Postfix))
	}
	return b.String()
}

// ElementPattern returns the substring every serialized name containing an
// element called name includes. It lets callers pre-filter stored names
// without decoding them.
func ElementPattern(name string) string {
	return elementMarker + escape(name) + prefixMarker
}

// Deserialize is the inverse of Serialize.
func Deserialize(s string) (NameHierarchy, error) {
	head, body, found := strings.Cut(s, metaMarker)
	if !found {
		return NameHierarchy{}, fmt.Errorf("%w: missing delimiter tag", ErrMalformedName)
	}

	delimiter, err := unescape(head)
	if err != nil {
		return NameHierarchy{}, fmt.Errorf("%w: delimiter: %v", ErrMalformedName, err)
	}

	parts := strings.Split(body, elementMarker)
	count, err := parseCount(parts[0])
	if err != nil {
		return NameHierarchy{}, fmt.Errorf("%w: invalid element count %q", ErrMalformedName, parts[0])
	}
	if count != len(parts)-1 {
		return NameHierarchy{}, fmt.Errorf("%w: encoded %d elements, found %d", ErrMalformedName, count, len(parts)-1)
	}

	h := NameHierarchy{Delimiter: delimiter}
	for i, part := range parts[1:] {
		e, err := decodeElement(part)
		if err != nil {
			return NameHierarchy{}, fmt.Errorf("%w: element %d: %v", ErrMalformedName, i, err)
		}
		h.Elements = append(h.Elements, e)
	}
	return h, nil
}

// parseCount accepts only the form Serialize writes: decimal digits without
// sign or leading zero.
func parseCount(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func decodeElement(s string) (NameElement, error) {
	name, rest, ok := strings.Cut(s, prefixMarker)
	if !ok {
		return NameElement{}, errors.New("missing prefix separator")
	}
	prefix, postfix, ok := strings.Cut(rest, postfixMarker)
	if !ok {
		return NameElement{}, errors.New("missing postfix separator")
	}
	if strings.Contains(postfix, "\t") {
		return NameElement{}, errors.New("unexpected separator after postfix")
	}

	var e NameElement
	var err error
	if e.Name, err = unescape(name); err != nil {
		return NameElement{}, err
	}
	if e.Prefix, err = unescape(prefix); err != nil {
		return NameElement{}, err
	}
	if e.Postfix, err = unescape(postfix); err != nil {
		return NameElement{}, err
	}
	return e, nil
}

func escape(s string) string {
	if !strings.ContainsAny(s, "\\\t") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func unescape(s string) (string, error) {
	if strings.Contains(s, "\t") {
		return "", errors.New("unescaped tab in field")
	}
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", errors.New("dangling escape")
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}
