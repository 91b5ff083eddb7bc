package urlspec

import (
	"strconv"
	"strings"
)

// HDUKind constrains a named-extension lookup to a particular HDU type.
type HDUKind int

// HDU kinds recognized by a named ExtensionSpec, per §4.B.
const (
	AnyHDU HDUKind = iota
	ImageHDU
	AsciiTableHDU
	BinaryTableHDU
)

// ExtensionSpec is the decoded form of an extension selector: either a
// bare 1-based index or a name+version+kind triple. IsIndex discriminates
// the two forms (§3's ExtensionSpec variant).
type ExtensionSpec struct {
	IsIndex bool
	Index   int // 0 <= Index <= 9999, valid only if IsIndex

	Name    string
	Version int     // 0 means "any"
	Kind    HDUKind // defaults to AnyHDU
}

// ParseExtSpec decodes an extension selector string (the bracketed or
// plus-extension text captured by ParseInput) per §4.B.
func ParseExtSpec(s string) (ExtensionSpec, error) {
	var out ExtensionSpec

	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	s = s[i:]

	if s == "" {
		return out, parseErrorf("empty extension specification")
	}

	if s[0] >= '0' && s[0] <= '9' {
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return out, parseErrorf("malformed extension index %q", s[:end])
		}
		if n < 0 || n > 9999 {
			return out, parseErrorf("extension index %d out of range [0, 9999]", n)
		}
		out.IsIndex = true
		out.Index = n
		return out, nil
	}

	const delims = " ,:"
	nameEnd := strings.IndexAny(s, delims)
	if nameEnd < 0 {
		nameEnd = len(s)
	}
	out.Name = s[:nameEnd]
	if out.Name == "" {
		return out, parseErrorf("missing extension name in %q", s)
	}
	rest := strings.TrimLeft(s[nameEnd:], " ")

	if rest != "" && (rest[0] == ',' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " ")
		vEnd := strings.IndexAny(rest, delims)
		if vEnd < 0 {
			vEnd = len(rest)
		}
		if vEnd > 0 {
			v, err := strconv.Atoi(rest[:vEnd])
			if err != nil {
				return out, parseErrorf("malformed extension version %q", rest[:vEnd])
			}
			out.Version = v
		}
		rest = strings.TrimLeft(rest[vEnd:], " ")
	}

	if rest != "" && (rest[0] == ',' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " ")
	}

	if rest != "" {
		switch rest[0] {
		case 'b', 'B':
			out.Kind = BinaryTableHDU
		case 't', 'T', 'a', 'A':
			out.Kind = AsciiTableHDU
		case 'i', 'I':
			out.Kind = ImageHDU
		default:
			return out, parseErrorf("unknown HDU kind letter %q in %q", rest[0], s)
		}
	}

	return out, nil
}
