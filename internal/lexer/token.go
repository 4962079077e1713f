// Package lexer implements stream-first tokenization: per-language stateful
// lexers that consume arbitrarily chunked byte slices and emit uniform
// StreamTokens, resuming tokens split across chunk boundaries with no data
// loss. Tokenizing a source as one chunk or as any sequence of splits
// yields the identical token sequence.
package lexer

import (
	"fmt"

	"factlex/internal/span"
)

// Language tags the variant of a StreamToken.
type Language uint8

const (
	LangJSON Language = iota
	LangZON
)

func (l Language) String() string {
	switch l {
	case LangJSON:
		return "json"
	case LangZON:
		return "zon"
	default:
		return fmt.Sprintf("lang(%d)", uint8(l))
	}
}

// ParseLanguage resolves a language by name or file extension.
func ParseLanguage(name string) (Language, bool) {
	switch name {
	case "json", ".json":
		return LangJSON, true
	case "zon", ".zon":
		return LangZON, true
	default:
		return 0, false
	}
}

// Token flag bits. Meaning is shared across languages; a flag is simply
// never set where it does not apply.
const (
	FlagHasEscapes       uint8 = 1 << 0 // string contains at least one escape
	FlagHasUnicodeEscape uint8 = 1 << 1 // string contains \u... / \u{...}
	FlagFloat            uint8 = 1 << 2 // number has a fraction or exponent
	FlagNegative         uint8 = 1 << 3 // number carries a leading minus
	FlagNonDecimal       uint8 = 1 << 4 // number uses a 0x/0o/0b radix prefix
)

// JSON token kinds.
const (
	JSONInvalid uint8 = iota
	JSONObjectOpen
	JSONObjectClose
	JSONArrayOpen
	JSONArrayClose
	JSONColon
	JSONComma
	JSONString
	JSONNumber
	JSONTrue
	JSONFalse
	JSONNull
	JSONWhitespace
)

var jsonKindNames = [...]string{
	JSONInvalid:     "invalid",
	JSONObjectOpen:  "object_open",
	JSONObjectClose: "object_close",
	JSONArrayOpen:   "array_open",
	JSONArrayClose:  "array_close",
	JSONColon:       "colon",
	JSONComma:       "comma",
	JSONString:      "string",
	JSONNumber:      "number",
	JSONTrue:        "true",
	JSONFalse:       "false",
	JSONNull:        "null",
	JSONWhitespace:  "whitespace",
}

// ZON token kinds.
const (
	ZONInvalid uint8 = iota
	ZONDotBraceOpen // .{
	ZONBraceClose   // }
	ZONComma
	ZONEquals
	ZONDotIdentifier // .name (field or enum literal)
	ZONIdentifier    // true, false, null, nan, inf
	ZONString
	ZONMultilineString // one \\...  line
	ZONCharLiteral
	ZONNumber
	ZONLineComment
	ZONWhitespace
)

var zonKindNames = [...]string{
	ZONInvalid:         "invalid",
	ZONDotBraceOpen:    "dot_brace_open",
	ZONBraceClose:      "brace_close",
	ZONComma:           "comma",
	ZONEquals:          "equals",
	ZONDotIdentifier:   "dot_identifier",
	ZONIdentifier:      "identifier",
	ZONString:          "string",
	ZONMultilineString: "multiline_string",
	ZONCharLiteral:     "char_literal",
	ZONNumber:          "number",
	ZONLineComment:     "line_comment",
	ZONWhitespace:      "whitespace",
}

// StreamToken is the uniform lexical unit: a 16-byte struct tagged by
// language. Cross-cutting operations dispatch with a switch on Lang,
// compiled to a jump table; there is deliberately no interface or function
// table in the per-token path.
type StreamToken struct {
	Span  span.Packed
	Lang  Language
	Kind  uint8
	Flags uint8
}

// KindName returns the language-specific kind name.
func (t StreamToken) KindName() string {
	switch t.Lang {
	case LangJSON:
		if int(t.Kind) < len(jsonKindNames) {
			return jsonKindNames[t.Kind]
		}
	case LangZON:
		if int(t.Kind) < len(zonKindNames) {
			return zonKindNames[t.Kind]
		}
	}
	return "invalid"
}

// IsTrivia reports whether the token carries no semantic content
// (whitespace, comments). Extraction skips trivia.
func (t StreamToken) IsTrivia() bool {
	switch t.Lang {
	case LangJSON:
		return t.Kind == JSONWhitespace
	case LangZON:
		return t.Kind == ZONWhitespace || t.Kind == ZONLineComment
	default:
		return false
	}
}

// Text returns the token's bytes from the original source buffer.
func (t StreamToken) Text(source []byte) []byte {
	return t.Span.Span().Text(source)
}

func (t StreamToken) String() string {
	return fmt.Sprintf("%s/%s@%s", t.Lang, t.KindName(), t.Span)
}
