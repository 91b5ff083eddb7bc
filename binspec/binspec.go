// Package binspec decodes a histogram specification ("bin ...") into the
// axes, ranges, bin sizes and weight that drive on-the-fly binning of a
// table into an image, per §4.C of the file-handle contract.
package binspec

import (
	"fmt"
	"strconv"
	"strings"
)

// PixelKind selects the output image's pixel storage type.
type PixelKind int

// Pixel kinds recognized by the optional fifth letter of "bin[ibrd]".
const (
	Int32 PixelKind = iota // "bin" or "binj" (default)
	Int16                  // "bini"
	Byte                   // "binb"
	Float32                // "binr"
	Float64                // "bind"
)

// Undefined is the sentinel carried by unset numeric BinSpec fields,
// mirroring the format library's DOUBLENULLVALUE.
const Undefined = -9e99

// ErrBinSpec is wrapped into every syntax error produced while parsing a
// binning specification.
var ErrBinSpec = fmt.Errorf("bin specification error")

func binErrorf(spec string, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s: %q", ErrBinSpec, msg, spec)
}

// BinSpec is the decoded form of a "[bin...]" selector.
type BinSpec struct {
	PixelKind  PixelKind
	HAxis      int
	Columns    [4]string
	Min        [4]float64
	Max        [4]float64
	BinSize    [4]float64
	MinKw      [4]string
	MaxKw      [4]string
	BinKw      [4]string
	Weight     float64
	WeightKw   string
	Reciprocal bool
}

func newDefault() BinSpec {
	var b BinSpec
	b.HAxis = 2
	b.Weight = 1.0
	for i := range b.Min {
		b.Min[i] = Undefined
		b.Max[i] = Undefined
		b.BinSize[i] = Undefined
	}
	return b
}

// Parse decodes a binning specification string. s is assumed to start
// with "bin" (the leading '[' has already been stripped by the URL
// parser), per §4.C.
func Parse(s string) (BinSpec, error) {
	out := newDefault()
	if !strings.HasPrefix(s, "bin") {
		return out, binErrorf(s, "binning specification must start with \"bin\"")
	}
	ptr := s[3:]

	switch {
	case strings.HasPrefix(ptr, "i"):
		out.PixelKind = Int16
		ptr = ptr[1:]
	case strings.HasPrefix(ptr, "j"):
		out.PixelKind = Int32
		ptr = ptr[1:]
	case strings.HasPrefix(ptr, "r"):
		out.PixelKind = Float32
		ptr = ptr[1:]
	case strings.HasPrefix(ptr, "d"):
		out.PixelKind = Float64
		ptr = ptr[1:]
	case strings.HasPrefix(ptr, "b"):
		out.PixelKind = Byte
		ptr = ptr[1:]
	}

	if ptr == "" {
		return out, nil
	}
	if ptr[0] != ' ' {
		return out, binErrorf(s, "binning specification syntax error")
	}
	ptr = strings.TrimLeft(ptr, " ")
	if ptr == "" {
		return out, nil
	}

	if ptr[0] == '(' {
		return parseColumnList(s, ptr, out)
	}
	return parseAxisList(s, ptr, out)
}

// parseColumnList handles "(col[, col...]) [= range]".
func parseColumnList(orig, ptr string, out BinSpec) (BinSpec, error) {
	ptr = ptr[1:] // skip '('
	axis := 0
	for ; axis < 4; axis++ {
		ptr = strings.TrimLeft(ptr, " ")
		end := strings.IndexAny(ptr, " ,)")
		if end < 0 {
			return out, binErrorf(orig, "binning specification has too many column names or is missing closing ')'")
		}
		out.Columns[axis] = ptr[:end]
		ptr = strings.TrimLeft(ptr[end:], " ")
		if ptr == "" {
			return out, binErrorf(orig, "binning specification has too many column names or is missing closing ')'")
		}
		if ptr[0] == ')' {
			out.HAxis = axis + 1
			ptr = ptr[1:]
			break
		}
		if ptr[0] == ',' {
			ptr = ptr[1:]
			continue
		}
		return out, binErrorf(orig, "binning specification has too many column names or is missing closing ')'")
	}
	if axis == 4 {
		return out, binErrorf(orig, "binning specification has too many column names or is missing closing ')'")
	}

	ptr = strings.TrimLeft(ptr, " ")
	if ptr == "" {
		return out, nil
	}
	if ptr[0] != '=' {
		return out, binErrorf(orig, "an equals sign '=' must follow the column names")
	}
	ptr = strings.TrimLeft(ptr[1:], " ")

	cursor := ptr
	_, minv, maxv, binv, minName, maxName, binName, err := parseBinRange(orig, &cursor)
	if err != nil {
		return out, err
	}
	for i := 0; i < out.HAxis; i++ {
		out.Min[i] = minv
		out.Max[i] = maxv
		out.BinSize[i] = binv
		out.MinKw[i] = minName
		out.MaxKw[i] = maxName
		out.BinKw[i] = binName
	}

	cursor = strings.TrimLeft(cursor, " ")
	if strings.HasPrefix(cursor, ";") {
		return parseWeight(orig, cursor, out)
	}
	if cursor != "" {
		return out, binErrorf(orig, "illegal binning specification")
	}
	return out, nil
}

// parseAxisList handles "col[=range][, col[=range] ...]" up to 4 axes.
func parseAxisList(orig, ptr string, out BinSpec) (BinSpec, error) {
	cursor := ptr
	axis := 0
	for ; axis < 4; axis++ {
		colname, minv, maxv, binv, minName, maxName, binName, err := parseBinRange(orig, &cursor)
		if err != nil {
			return out, err
		}
		out.Columns[axis] = colname
		out.Min[axis] = minv
		out.Max[axis] = maxv
		out.BinSize[axis] = binv
		out.MinKw[axis] = minName
		out.MaxKw[axis] = maxName
		out.BinKw[axis] = binName

		if cursor == "" || strings.HasPrefix(cursor, ";") {
			break
		}
		if cursor[0] == ' ' {
			cursor = strings.TrimLeft(cursor, " ")
			if cursor == "" || strings.HasPrefix(cursor, ";") {
				break
			}
			if cursor[0] == ',' {
				cursor = cursor[1:]
				continue
			}
			return out, binErrorf(orig, "illegal binning specification")
		}
		if cursor[0] == ',' {
			cursor = cursor[1:]
			continue
		}
		return out, binErrorf(orig, "illegal binning specification")
	}
	if axis == 4 {
		return out, binErrorf(orig, "apparently too many histogram dimensions (> 4)")
	}
	out.HAxis = axis + 1

	// Special case: a single bare binsize number defaults to a 2-D
	// histogram on the default X/Y axes.
	if out.HAxis == 1 && out.Columns[0] == "" &&
		out.Min[0] == Undefined && out.Max[0] == Undefined {
		out.HAxis = 2
		out.BinSize[1] = out.BinSize[0]
	}

	cursor = strings.TrimLeft(cursor, " ")
	if strings.HasPrefix(cursor, ";") {
		return parseWeight(orig, cursor, out)
	}
	cursor = strings.TrimLeft(cursor, " ")
	if cursor != "" {
		return out, binErrorf(orig, "illegal binning specification")
	}
	return out, nil
}

// parseWeight handles the trailing ";[/]weight" clause.
func parseWeight(orig, ptr string, out BinSpec) (BinSpec, error) {
	ptr = ptr[1:] // skip ';'
	ptr = strings.TrimLeft(ptr, " ")

	out.Reciprocal = false
	if strings.HasPrefix(ptr, "/") {
		out.Reciprocal = true
		ptr = strings.TrimLeft(ptr[1:], " ")
	}

	cursor := ptr
	wtname, _, _, weight, _, _, _, err := parseBinRange(orig, &cursor)
	if err != nil {
		return out, err
	}
	if wtname != "" {
		out.WeightKw = wtname
	} else if weight != Undefined {
		out.Weight = weight
	}

	cursor = strings.TrimLeft(cursor, " ")
	if cursor != "" {
		return out, binErrorf(orig, "illegal binning specification")
	}
	return out, nil
}

// parseBinRange is ffbinr: parse a single range specification from
// *cursor, advancing it past what was consumed. It returns the column
// name (if any) together with min/max/binsize values (Undefined if
// unset) and the keyword names that stand in for numeric values.
func parseBinRange(orig string, cursor *string) (colname string, minv, maxv, binv float64, minName, maxName, binName string, err error) {
	minv, maxv, binv = Undefined, Undefined, Undefined

	token, isNumber := getToken(cursor, " ,=:;")
	if token == "" && (*cursor == "" || strings.HasPrefix(*cursor, ",") || strings.HasPrefix(*cursor, ";")) {
		return "", minv, maxv, binv, "", "", "", nil
	}

	if !isNumber && !strings.HasPrefix(*cursor, ":") {
		// This looks like a column name.
		if len(token) > 1 && token[0] == '#' && token[1] >= '0' && token[1] <= '9' {
			colname = token[1:]
		} else {
			colname = token
		}
		if !strings.HasPrefix(*cursor, "=") {
			return colname, minv, maxv, binv, minName, maxName, binName, nil
		}
		*cursor = (*cursor)[1:]
		token, isNumber = getToken(cursor, " ,:;")
	}

	if !strings.HasPrefix(*cursor, ":") {
		if token != "" {
			if !isNumber {
				binName = token
			} else {
				binv = parseFloat(token)
			}
		}
		return colname, minv, maxv, binv, minName, maxName, binName, nil
	}

	if token != "" {
		if !isNumber {
			minName = token
		} else {
			minv = parseFloat(token)
		}
	}

	*cursor = (*cursor)[1:] // skip ':'
	token, isNumber = getToken(cursor, " ,:;")
	if token != "" {
		if !isNumber {
			maxName = token
		} else {
			maxv = parseFloat(token)
		}
	}

	if !strings.HasPrefix(*cursor, ":") {
		return colname, minv, maxv, binv, minName, maxName, binName, nil
	}

	*cursor = (*cursor)[1:] // skip ':'
	token, isNumber = getToken(cursor, " ,:;")
	if token != "" {
		if !isNumber {
			binName = token
		} else {
			binv = parseFloat(token)
		}
	}

	return colname, minv, maxv, binv, minName, maxName, binName, nil
}

// getToken implements fits_get_token: skip leading spaces, copy up to
// the first character in delim, advance the cursor past the token. A
// token "is a number" iff every character is a digit, '.', or '-' --
// notably, a bare "-" therefore parses as the number 0 (§9 Open
// Questions; preserved exactly).
func getToken(cursor *string, delim string) (token string, isNumber bool) {
	s := *cursor
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	s = s[i:]

	end := strings.IndexAny(s, delim)
	if end < 0 {
		end = len(s)
	}
	token = s[:end]
	*cursor = s[end:]

	if token == "" {
		return token, false
	}
	isNumber = true
	for _, c := range token {
		if !(c >= '0' && c <= '9') && c != '.' && c != '-' {
			isNumber = false
			break
		}
	}
	return token, isNumber
}

func parseFloat(token string) float64 {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return v
}
