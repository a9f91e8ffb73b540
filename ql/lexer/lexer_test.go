package lexer

import (
	"testing"

	"github.com/driftdb/driftdb/gns"
	"github.com/stretchr/testify/require"
)

func TestTokenizeKeywordsSymbolsIdentifiers(t *testing.T) {
	toks, err := New([]byte("create model app.users ( id: uint64, name: string )")).Tokenize()
	require.NoError(t, err)

	require.True(t, toks[0].IsKeyword(KwCreate))
	require.True(t, toks[1].IsKeyword(KwModel))
	require.Equal(t, TokIdentifier, toks[2].Kind)
	require.Equal(t, "app", toks[2].Ident)
	require.True(t, toks[3].IsSymbol(SymDot))
	require.Equal(t, "users", toks[4].Ident)
	require.True(t, toks[5].IsSymbol(SymLParen))
}

func TestTokenizeBooleanLiterals(t *testing.T) {
	toks, err := New([]byte("true false")).Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	require.Equal(t, TokLiteral, toks[0].Kind)
	require.Equal(t, gns.LayerBool, toks[0].Literal.Kind)
	require.True(t, toks[0].Literal.Bool)
	require.False(t, toks[1].Literal.Bool)
}

func TestTokenizeUnsignedAndSignedIntegers(t *testing.T) {
	toks, err := New([]byte("42 -7")).Tokenize()
	require.NoError(t, err)
	require.Equal(t, gns.LayerUInt64, toks[0].Literal.Kind)
	require.Equal(t, uint64(42), toks[0].Literal.UInt)
	require.Equal(t, gns.LayerSInt64, toks[1].Literal.Kind)
	require.Equal(t, int64(-7), toks[1].Literal.SInt)
}

func TestTokenizeRejectsTrailingAlphanumOnNumber(t *testing.T) {
	_, err := New([]byte("42abc")).Tokenize()
	require.Error(t, err)
}

func TestTokenizeQuotedStringEscapes(t *testing.T) {
	toks, err := New([]byte(`"a\"b\\c\'d"`)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, gns.LayerStr, toks[0].Literal.Kind)
	require.Equal(t, []byte(`a"b\c'd`), toks[0].Literal.Bytes)
}

func TestTokenizeQuotedStringRejectsBadEscape(t *testing.T) {
	_, err := New([]byte(`"a\zb"`)).Tokenize()
	require.Error(t, err)
}

func TestTokenizeQuotedStringRejectsUnterminated(t *testing.T) {
	_, err := New([]byte(`"abc`)).Tokenize()
	require.Error(t, err)
}

func TestTokenizeBinaryBlob(t *testing.T) {
	toks, err := New([]byte("\r3\nabc")).Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, gns.LayerBin, toks[0].Literal.Kind)
	require.Equal(t, []byte("abc"), toks[0].Literal.Bytes)
}

func TestTokenizeBinaryBlobRejectsTruncated(t *testing.T) {
	_, err := New([]byte("\r5\nab")).Tokenize()
	require.Error(t, err)
}

func TestTokenizeRejectsInlineLiteralsInSecureMode(t *testing.T) {
	_, err := NewSecure([]byte("42"), nil, 0).Tokenize()
	require.Error(t, err)

	_, err = NewSecure([]byte(`"x"`), nil, 0).Tokenize()
	require.Error(t, err)
}

func TestTokenizeRejectsQuestionMarkInInsecureMode(t *testing.T) {
	_, err := New([]byte("?")).Tokenize()
	require.Error(t, err)
}

func TestTokenizeWhitespaceIsSkipped(t *testing.T) {
	toks, err := New([]byte("  use \t space\n")).Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 2)
}

func TestTokenizeRejectsUnrecognizedByte(t *testing.T) {
	_, err := New([]byte("#")).Tokenize()
	require.Error(t, err)
}
