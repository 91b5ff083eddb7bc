// Package urlspec decomposes a format filename/URL string into the
// transport prefix, input/output paths, extension selector, row filter,
// binning specification and column specification that drive the rest of
// the file-handle layer.
package urlspec

import (
	"fmt"
	"strings"
)

// ParsedURL is the transient result of decomposing a filename/URL string.
// An empty field means "absent".
type ParsedURL struct {
	URLType   string // e.g. "file://", "http://", "stdin://"
	InFile    string
	OutFile   string
	ExtSpec   string
	RowFilter string // always lower-cased
	BinSpec   string
	ColSpec   string
}

// ErrURLParse is returned (wrapped with context) for any malformed
// input/bin/col/ext specification.
var ErrURLParse = fmt.Errorf("url parse error")

func parseErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrURLParse}, args...)...)
}

var schemePrefixes = []struct {
	token  string // the literal that must appear at the start, colon included
	urlTyp string
}{
	{"ftp:", "ftp://"},
	{"http:", "http://"},
	{"mem:", "mem://"},
	{"shmem:", "shmem://"},
	{"file:", "file://"},
}

// ParseInput parses the full input-URL grammar (§4.A, §6) into a ParsedURL.
func ParseInput(url string) (ParsedURL, error) {
	var out ParsedURL

	rest := strings.TrimLeft(url, " ")
	if rest == "" {
		return out, nil
	}

	rest, out.URLType = splitPrefix(rest)

	infile, outfile, tail, hasBracket, err := splitInfileOutfile(rest)
	if err != nil {
		return out, err
	}
	infile = strings.TrimRight(infile, " ")
	outfile = strings.TrimRight(outfile, " ")

	// Plus-extension shortcut: a trailing "+<digits>" run. The original
	// source's quick length filter is "(jj - ii) < 5" where ii is the
	// index of '+' and jj the string length, i.e. (1 + digit count) < 5
	// -- so only runs of at most 3 digits qualify, one short of the
	// documented "4 digit" limit. Preserved exactly: a run of 4 or more
	// digits (e.g. "+1234", "+00000") is left untouched as plain text.
	plusExt := false
	if idx := strings.LastIndexByte(infile, '+'); idx > 0 && len(infile)-idx-1 < 4 {
		digits := infile[idx+1:]
		if digits != "" && isAllDigits(digits) {
			out.ExtSpec = digits
			infile = infile[:idx]
			plusExt = true
		}
	}

	// Wildcard output: "*" expands to the basename of infile.
	if strings.HasPrefix(outfile, "*") {
		base := infile
		if slash := strings.LastIndexByte(infile, '/'); slash >= 0 {
			base = infile[slash+1:]
		}
		outfile = base
	}

	out.InFile = infile
	out.OutFile = outfile

	if !hasBracket {
		return out, nil
	}

	var rowfilter string
	if plusExt {
		// The bracketed region found by splitInfileOutfile is the whole
		// row filter; extspec was already captured above.
		rowfilter = tail
	} else {
		extspec, after, err := splitBracket(tail)
		if err != nil {
			return out, err
		}
		out.ExtSpec = extspec
		rowfilter = after
	}

	rowfilter = strings.TrimRight(rowfilter, " ")
	rowfilter = strings.ToLower(rowfilter)

	rowfilter, binspec, err := extractBracketed(rowfilter, hasBinPrefix)
	if err != nil {
		return out, err
	}
	out.BinSpec = binspec

	rowfilter, colspec, err := extractBracketed(rowfilter, hasColPrefix)
	if err != nil {
		return out, err
	}
	out.ColSpec = colspec

	out.RowFilter = rowfilter
	return out, nil
}

// ParseOutput parses the output-URL grammar used by Create: "-" alone
// means stdout://, otherwise it is the same prefix/path grammar as
// ParseInput with the remainder treated as the output file.
func ParseOutput(url string) (urltype, outfile string, err error) {
	rest := strings.TrimLeft(url, " ")
	if rest == "-" {
		return "stdout://", "", nil
	}
	rest, urltype = splitPrefix(rest)
	outfile = strings.TrimRight(rest, " ")
	return urltype, outfile, nil
}

// ParseRoot concatenates the canonical urltype and infile only, stripping
// any extension/filter specification (ffrtnm in the original source).
func ParseRoot(url string) (string, error) {
	parsed, err := ParseInput(url)
	if err != nil {
		return "", err
	}
	return parsed.URLType + parsed.InFile, nil
}

// splitPrefix determines the transport prefix per §4.A step 2 and returns
// the remainder of the string after the prefix.
func splitPrefix(s string) (rest, urltype string) {
	if strings.HasPrefix(s, "-") {
		return s[1:], "stdin://"
	}
	if idx := strings.Index(s, "://"); idx >= 0 {
		return s[idx+3:], s[:idx+3]
	}
	for _, sp := range schemePrefixes {
		if strings.HasPrefix(s, sp.token) {
			return s[len(sp.token):], sp.urlTyp
		}
	}
	return s, "file://"
}

// splitInfileOutfile implements §4.A step 3: locate the first '(' and
// first '[' and split infile/outfile/tail accordingly. tail is whatever
// follows the chosen split point that still needs bracket parsing; it
// always starts at (or past) the first '[' when hasBracket is true.
func splitInfileOutfile(s string) (infile, outfile, tail string, hasBracket bool, err error) {
	parenIdx := strings.IndexByte(s, '(')
	bracketIdx := strings.IndexByte(s, '[')

	switch {
	case parenIdx < 0 && bracketIdx < 0:
		return s, "", "", false, nil
	case bracketIdx < 0, parenIdx >= 0 && parenIdx < bracketIdx:
		// '(' present and (no '[' or '(' precedes '[')
		closeIdx := strings.IndexByte(s[parenIdx+1:], ')')
		if closeIdx < 0 {
			return "", "", "", false, parseErrorf("missing closing ')' in %q", s)
		}
		infile = s[:parenIdx]
		outfile = s[parenIdx+1 : parenIdx+1+closeIdx]
		after := s[parenIdx+1+closeIdx+1:]
		if idx := strings.IndexByte(after, '['); idx >= 0 {
			return infile, outfile, after[idx:], true, nil
		}
		return infile, outfile, "", false, nil
	default:
		// '[' present and (no '(' or '[' precedes '(')
		infile = s[:bracketIdx]
		return infile, "", s[bracketIdx:], true, nil
	}
}

// splitBracket extracts the content of the first [ ... ] pair at the
// start of s (s[0] == '['), returning that content and everything after
// the closing ']'.
func splitBracket(s string) (inner, after string, err error) {
	if len(s) == 0 || s[0] != '[' {
		return "", s, nil
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", "", parseErrorf("missing closing ']' in %q", s)
	}
	return s[1:end], s[end+1:], nil
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// hasBinPrefix and hasColPrefix recognize the "[bin...]"/"[col...]"
// sub-specifications embedded inside a row filter, per §4.A steps 8-9.
// A bin marker is "bin" plus an optional single type letter, and the
// character right after that must be a space (more spec follows) or the
// end of the bracket (defaults only) -- mirroring ffiurl's check that
// *ptr2 is ' ' or ']'.
func hasBinPrefix(inner string) bool {
	if !strings.HasPrefix(inner, "bin") {
		return false
	}
	rest := inner[3:]
	if rest == "" {
		return true
	}
	switch rest[0] {
	case 'i', 'j', 'b', 'r', 'd':
		rest = rest[1:]
	}
	return rest == "" || rest[0] == ' '
}

func hasColPrefix(inner string) bool {
	return strings.HasPrefix(inner, "col")
}

// extractBracketed scans filter for the first "[...]" sub-specification
// whose content satisfies match, deletes it from filter and returns the
// trimmed bracket content (without the leading '[').
func extractBracketed(filter string, match func(inner string) bool) (remaining, extracted string, err error) {
	for i := 0; i < len(filter); i++ {
		if filter[i] != '[' {
			continue
		}
		end := strings.IndexByte(filter[i:], ']')
		if end < 0 {
			continue
		}
		end += i
		inner := filter[i+1 : end]
		if !match(inner) {
			continue
		}
		inner = strings.TrimSuffix(inner, " ")
		return filter[:i] + filter[end+1:], inner, nil
	}
	return filter, "", nil
}
