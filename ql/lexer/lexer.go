package lexer

import (
	"strconv"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
)

// Lexer tokenizes a BlueQL source buffer. A Lexer is single-use: construct
// one per statement via New or NewSecure.
type Lexer struct {
	src []byte
	pos int

	secure     bool
	params     []byte
	paramPos   int
	paramWant  int
	paramsUsed int
}

// New constructs an insecure-mode lexer: literals are read inline from src.
func New(src []byte) *Lexer {
	return &Lexer{src: src}
}

// NewSecure constructs a secure-mode lexer: every `?` in src is resolved
// against the next entry of the parallel params stream. paramCount bounds
// how many parameters the caller claims to supply; exceeding it without
// consuming paramCount params by end of lexing is not itself an error (a
// statement may use fewer placeholders than supplied params), but running
// out of params while a `?` remains is LexInvalidInput.
func NewSecure(src []byte, params []byte, paramCount int) *Lexer {
	return &Lexer{src: src, secure: true, params: params, paramWant: paramCount}
}

func isWS(b byte) bool { return b == ' ' || b == '\t' || b == '\n' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isAlphaNum(b byte) bool { return isAlpha(b) || isDigit(b) }

// Tokenize scans the entire source buffer into a token slice.
func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	for l.pos < len(l.src) {
		b := l.src[l.pos]
		switch {
		case isWS(b):
			l.pos++
		case b == '?':
			if !l.secure {
				// In insecure mode `?` is not a valid literal syntax;
				// reject it as an unexpected byte.
				return nil, ferr.New(ferr.LexUnexpectedByte, "unexpected '?' in insecure mode")
			}
			tok, err := l.nextParam()
			if err != nil {
				return nil, err
			}
			l.pos++
			toks = append(toks, tok)
		case isDigit(b) || (b == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
			if l.secure {
				return nil, ferr.New(ferr.LexInvalidInput, "inline literal in secure mode")
			}
			tok, err := l.lexNumber()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case b == '"' || b == '\'':
			if l.secure {
				return nil, ferr.New(ferr.LexInvalidInput, "inline literal in secure mode")
			}
			tok, err := l.lexQuotedString(b)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case b == '\r':
			if l.secure {
				return nil, ferr.New(ferr.LexInvalidInput, "inline literal in secure mode")
			}
			tok, err := l.lexBinaryBlob()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case isAlpha(b):
			toks = append(toks, l.lexWordOrKeyword())
		default:
			if sym, ok := LookupSymbol(b); ok {
				l.pos++
				toks = append(toks, symbolToken(sym))
				continue
			}
			return nil, ferr.Newf(ferr.LexUnexpectedByte, "unexpected byte %q at offset %d", b, l.pos)
		}
	}
	return toks, nil
}

func (l *Lexer) lexWordOrKeyword() Token {
	start := l.pos
	for l.pos < len(l.src) && isAlphaNum(l.src[l.pos]) {
		l.pos++
	}
	word := string(l.src[start:l.pos])
	if kw, ok := LookupKeyword(word); ok {
		switch kw {
		case KwTrue:
			return literalToken(Literal{Kind: gns.LayerBool, Bool: true})
		case KwFalse:
			return literalToken(Literal{Kind: gns.LayerBool, Bool: false})
		}
		return keywordToken(kw)
	}
	return identToken(word)
}

func (l *Lexer) lexNumber() (Token, error) {
	start := l.pos
	neg := false
	if l.src[l.pos] == '-' {
		neg = true
		l.pos++
	}
	digitsStart := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && isAlphaNum(l.src[l.pos]) {
		return Token{}, ferr.Newf(ferr.LexInvalidInput, "trailing alphanumeric byte after numeric literal at offset %d", l.pos)
	}
	text := string(l.src[digitsStart:l.pos])
	if neg {
		v, err := strconv.ParseInt(string(l.src[start:l.pos]), 10, 64)
		if err != nil {
			return Token{}, ferr.Wrap(err, ferr.LexInvalidInput, "invalid signed integer literal")
		}
		return literalToken(Literal{Kind: gns.LayerSInt64, SInt: v}), nil
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return Token{}, ferr.Wrap(err, ferr.LexInvalidInput, "invalid unsigned integer literal")
	}
	return literalToken(Literal{Kind: gns.LayerUInt64, UInt: v}), nil
}

func (l *Lexer) lexQuotedString(quote byte) (Token, error) {
	l.pos++ // opening quote
	var out []byte
	for {
		if l.pos >= len(l.src) {
			return Token{}, ferr.New(ferr.LexInvalidInput, "unterminated string literal")
		}
		b := l.src[l.pos]
		if b == quote {
			l.pos++
			return literalToken(Literal{Kind: gns.LayerStr, Bytes: out}), nil
		}
		if b == '\\' {
			l.pos++
			if l.pos >= len(l.src) {
				return Token{}, ferr.New(ferr.LexInvalidInput, "unterminated escape sequence")
			}
			esc := l.src[l.pos]
			switch esc {
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			case '\'':
				out = append(out, '\'')
			default:
				return Token{}, ferr.Newf(ferr.LexInvalidInput, "invalid escape sequence \\%c", esc)
			}
			l.pos++
			continue
		}
		out = append(out, b)
		l.pos++
	}
}

// lexBinaryBlob parses `\r<len>\n<bytes>` into a Bin literal.
func (l *Lexer) lexBinaryBlob() (Token, error) {
	l.pos++ // consume '\r'
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		return Token{}, ferr.New(ferr.LexInvalidInput, "binary literal missing length")
	}
	n, err := strconv.ParseUint(string(l.src[start:l.pos]), 10, 32)
	if err != nil {
		return Token{}, ferr.Wrap(err, ferr.LexInvalidInput, "invalid binary literal length")
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '\n' {
		return Token{}, ferr.New(ferr.LexInvalidInput, "binary literal missing newline after length")
	}
	l.pos++
	end := l.pos + int(n)
	if end > len(l.src) {
		return Token{}, ferr.New(ferr.LexInvalidInput, "binary literal truncated")
	}
	payload := make([]byte, n)
	copy(payload, l.src[l.pos:end])
	l.pos = end
	return literalToken(Literal{Kind: gns.LayerBin, Bytes: payload}), nil
}
