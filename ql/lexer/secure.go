package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
)

// Parameter descriptor codes, read as a single byte from the params stream
// for every `?` encountered in the query text. Indices 0-6 name a type;
// index 7 is the error sink any out-of-range or underfed descriptor is
// clamped to.
const (
	paramNull = iota
	paramBool
	paramUint
	paramSint
	paramFloat
	paramBinary
	paramString
	paramError
)

// scanParamExpect[i] is the minimum number of bytes that must remain in the
// params stream, past the descriptor byte, before dispatching to handler i.
// It is a cheap sanity gate, not the actual payload length for the
// variable-length kinds (those carry their own ASCII length prefix).
var scanParamExpect = [8]int{0, 1, 2, 2, 2, 2, 2, 0}

// nextParam resolves one `?` placeholder against the next entry of the
// params stream. Scalars other than bool are encoded as ASCII digits
// terminated by '\n'; binary and string carry an ASCII '\n'-terminated
// length prefix followed by that many raw bytes.
func (l *Lexer) nextParam() (Token, error) {
	if l.paramPos >= len(l.params) {
		return Token{}, ferr.New(ferr.LexInvalidInput, "parameter stream exhausted")
	}
	dscr := l.params[l.paramPos]
	target := int(dscr)
	if target > paramError {
		target = paramError
	}
	if target == int(dscr) {
		l.paramPos++
	}
	if len(l.params)-l.paramPos < scanParamExpect[target] {
		target = paramError
	}
	l.paramsUsed++

	switch target {
	case paramNull:
		return keywordToken(KwNull), nil
	case paramBool:
		b := l.params[l.paramPos]
		l.paramPos++
		if b > 1 {
			return Token{}, ferr.New(ferr.LexInvalidInput, "invalid bool parameter byte")
		}
		return literalToken(Literal{Kind: gns.LayerBool, Bool: b == 1}), nil
	case paramUint:
		v, ok := l.scanParamAsciiUint()
		if !ok {
			return Token{}, ferr.New(ferr.LexInvalidInput, "malformed uint parameter")
		}
		return literalToken(Literal{Kind: gns.LayerUInt64, UInt: v}), nil
	case paramSint:
		v, ok := l.scanParamAsciiSint()
		if !ok {
			return Token{}, ferr.New(ferr.LexInvalidInput, "malformed sint parameter")
		}
		return literalToken(Literal{Kind: gns.LayerSInt64, SInt: v}), nil
	case paramFloat:
		v, ok := l.scanParamAsciiFloat()
		if !ok {
			return Token{}, ferr.New(ferr.LexInvalidInput, "malformed float parameter")
		}
		return literalToken(Literal{Kind: gns.LayerFloat64, Float: v}), nil
	case paramBinary:
		n, ok := l.scanParamAsciiUint()
		if !ok {
			return Token{}, ferr.New(ferr.LexInvalidInput, "malformed binary parameter length")
		}
		body, ok := l.scanParamBlock(n)
		if !ok {
			return Token{}, ferr.New(ferr.LexInvalidInput, "truncated binary parameter")
		}
		return literalToken(Literal{Kind: gns.LayerBin, Bytes: body}), nil
	case paramString:
		n, ok := l.scanParamAsciiUint()
		if !ok {
			return Token{}, ferr.New(ferr.LexInvalidInput, "malformed string parameter length")
		}
		body, ok := l.scanParamBlock(n)
		if !ok || !utf8.Valid(body) {
			return Token{}, ferr.New(ferr.LexInvalidInput, "truncated or invalid string parameter")
		}
		return literalToken(Literal{Kind: gns.LayerStr, Bytes: body}), nil
	default:
		return Token{}, ferr.Newf(ferr.LexInvalidInput, "invalid parameter descriptor %d", dscr)
	}
}

// scanParamAsciiUint reads decimal digits up to a '\n' terminator, leaving
// the cursor untouched on failure.
func (l *Lexer) scanParamAsciiUint() (uint64, bool) {
	start := l.paramPos
	i := start
	for i < len(l.params) && l.params[i] != '\n' {
		if !isDigit(l.params[i]) {
			return 0, false
		}
		i++
	}
	if i >= len(l.params) || i == start {
		return 0, false
	}
	v, err := strconv.ParseUint(string(l.params[start:i]), 10, 64)
	if err != nil {
		return 0, false
	}
	l.paramPos = i + 1
	return v, true
}

// scanParamAsciiSint is scanParamAsciiUint with an optional leading '-'.
func (l *Lexer) scanParamAsciiSint() (int64, bool) {
	start := l.paramPos
	i := start
	if i < len(l.params) && l.params[i] == '-' {
		i++
	}
	digitsStart := i
	for i < len(l.params) && l.params[i] != '\n' {
		if !isDigit(l.params[i]) {
			return 0, false
		}
		i++
	}
	if i >= len(l.params) || i == digitsStart {
		return 0, false
	}
	v, err := strconv.ParseInt(string(l.params[start:i]), 10, 64)
	if err != nil {
		return 0, false
	}
	l.paramPos = i + 1
	return v, true
}

// scanParamAsciiFloat reads any '\n'-terminated run and parses it as a
// float64; unlike the integer scanners it does not restrict the byte set
// ahead of time since strconv.ParseFloat gives the precise diagnosis.
func (l *Lexer) scanParamAsciiFloat() (float64, bool) {
	start := l.paramPos
	i := start
	for i < len(l.params) && l.params[i] != '\n' {
		i++
	}
	if i >= len(l.params) {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(l.params[start:i]), 64)
	if err != nil {
		return 0, false
	}
	l.paramPos = i + 1
	return v, true
}

// scanParamBlock consumes exactly n raw bytes from the params stream.
func (l *Lexer) scanParamBlock(n uint64) ([]byte, bool) {
	if uint64(len(l.params)-l.paramPos) < n {
		return nil, false
	}
	end := l.paramPos + int(n)
	block := make([]byte, n)
	copy(block, l.params[l.paramPos:end])
	l.paramPos = end
	return block, true
}
