package lexer

import (
	"strconv"
	"strings"

	"factlex/internal/span"
)

// zonContext enumerates the ZON lexer's resumable states. Escape handling
// is shared between string and char literals via escReturn, which names
// the context to restore once the escape completes.
type zonContext uint8

const (
	znNormal zonContext = iota
	znWhitespace
	znString
	znEscape  // consumed a backslash inside a string/char literal
	znEscHex  // inside \xNN
	znEscUni  // inside \u{...}
	znChar    // consumed the opening single quote
	znCharEnd // char payload consumed, closing quote expected
	znSlash   // consumed one '/', second one makes a comment
	znComment
	znBackslash // consumed one '\', second one makes a multiline string line
	znMultiline
	znDot // consumed '.', '{' or an identifier must follow
	znIdent
	znDotIdent
	znNumber
)

// ZONLexer tokenizes Zig Object Notation delivered in arbitrary chunks.
// Not supported (rejected, not mis-lexed): @"quoted" identifiers.
type ZONLexer struct {
	ctx        zonContext
	tokenStart uint32
	buf        [PartialBufferCap]byte
	bufLen     int

	flags     uint8
	hexSeen   uint8
	uniOpen   bool // inside the braces of \u{...}
	escReturn zonContext
	utf8      utf8State
	num       zonNumState
}

// NewZONLexer returns a lexer in the initial state.
func NewZONLexer() *ZONLexer {
	return &ZONLexer{}
}

func (l *ZONLexer) Language() Language {
	return LangZON
}

// Reset returns the lexer to its initial state for reuse.
func (l *ZONLexer) Reset() {
	*l = ZONLexer{}
}

// Pending returns the buffered bytes of the in-progress token.
func (l *ZONLexer) Pending() []byte {
	return l.buf[:l.bufLen]
}

func (l *ZONLexer) token(end uint32, kind, flags uint8) StreamToken {
	l.bufLen = 0
	return StreamToken{
		Span:  span.Pack(span.Span{Start: l.tokenStart, End: end}),
		Lang:  LangZON,
		Kind:  kind,
		Flags: flags,
	}
}

func (l *ZONLexer) capCheck(abs uint32) error {
	if abs-l.tokenStart >= PartialBufferCap {
		return lexErr(l.tokenStart, ErrTokenTooLarge)
	}
	return nil
}

func (l *ZONLexer) retain(chunk []byte, chunkStart uint32) error {
	seg := chunk
	if l.tokenStart >= chunkStart {
		seg = chunk[l.tokenStart-chunkStart:]
	}
	if l.bufLen+len(seg) > PartialBufferCap {
		return lexErr(l.tokenStart, ErrTokenTooLarge)
	}
	copy(l.buf[l.bufLen:], seg)
	l.bufLen += len(seg)
	return nil
}

// TokenizeChunk scans one chunk. See the Lexer contract for semantics.
func (l *ZONLexer) TokenizeChunk(chunk []byte, chunkStart uint32, out []StreamToken) ([]StreamToken, error) {
	i := 0
	for i < len(chunk) {
		b := chunk[i]
		abs := chunkStart + uint32(i)

		switch l.ctx {
		case znNormal:
			switch {
			case isSpace(b):
				l.ctx = znWhitespace
				l.tokenStart = abs
				i++
			case b == '}':
				out = append(out, single(LangZON, abs, ZONBraceClose))
				i++
			case b == ',':
				out = append(out, single(LangZON, abs, ZONComma))
				i++
			case b == '=':
				out = append(out, single(LangZON, abs, ZONEquals))
				i++
			case b == '.':
				l.ctx = znDot
				l.tokenStart = abs
				i++
			case b == '"':
				l.ctx = znString
				l.tokenStart = abs
				l.flags = 0
				l.utf8 = utf8State{}
				i++
			case b == '\'':
				l.ctx = znChar
				l.tokenStart = abs
				l.flags = 0
				l.utf8 = utf8State{}
				i++
			case b == '/':
				l.ctx = znSlash
				l.tokenStart = abs
				i++
			case b == '\\':
				l.ctx = znBackslash
				l.tokenStart = abs
				i++
			case b == '-' || isDigit(b):
				l.ctx = znNumber
				l.tokenStart = abs
				l.num = zonNumState{}
				// the number state consumes this byte
			case isIdentStart(b):
				l.ctx = znIdent
				l.tokenStart = abs
				i++
			default:
				return out, lexErr(abs, ErrUnexpectedByte)
			}

		case znWhitespace:
			if isSpace(b) {
				i++
			} else {
				out = append(out, l.token(abs, ZONWhitespace, 0))
				l.ctx = znNormal
			}

		case znString:
			if err := l.capCheck(abs); err != nil {
				return out, err
			}
			switch {
			case l.utf8.open() || b >= 0x80:
				if !l.utf8.step(b) {
					return out, lexErr(l.tokenStart, ErrInvalidUTF8)
				}
				i++
			case b == '"':
				out = append(out, l.token(abs+1, ZONString, l.flags))
				l.ctx = znNormal
				i++
			case b == '\\':
				l.flags |= FlagHasEscapes
				l.escReturn = znString
				l.ctx = znEscape
				i++
			case b == '\n' || b < 0x20:
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			default:
				i++
			}

		case znEscape:
			switch b {
			case 'n', 'r', 't', '\\', '\'', '"':
				l.ctx = l.escReturn
				i++
			case 'x':
				l.ctx = znEscHex
				l.hexSeen = 0
				i++
			case 'u':
				l.flags |= FlagHasUnicodeEscape
				l.ctx = znEscUni
				l.hexSeen = 0
				l.uniOpen = false
				i++
			default:
				return out, lexErr(l.tokenStart, ErrInvalidEscapeSequence)
			}

		case znEscHex:
			if !isHexDigit(b) {
				return out, lexErr(l.tokenStart, ErrInvalidEscapeSequence)
			}
			l.hexSeen++
			i++
			if l.hexSeen == 2 {
				l.ctx = l.escReturn
			}

		case znEscUni:
			switch {
			case !l.uniOpen:
				if b != '{' {
					return out, lexErr(l.tokenStart, ErrInvalidUnicodeEscape)
				}
				l.uniOpen = true
				i++
			case b == '}':
				if l.hexSeen == 0 {
					return out, lexErr(l.tokenStart, ErrInvalidUnicodeEscape)
				}
				l.ctx = l.escReturn
				i++
			case isHexDigit(b):
				if l.hexSeen == 6 {
					return out, lexErr(l.tokenStart, ErrInvalidUnicodeEscape)
				}
				l.hexSeen++
				i++
			default:
				return out, lexErr(l.tokenStart, ErrInvalidUnicodeEscape)
			}

		case znChar:
			if err := l.capCheck(abs); err != nil {
				return out, err
			}
			switch {
			case l.utf8.open():
				if !l.utf8.step(b) {
					return out, lexErr(l.tokenStart, ErrInvalidUTF8)
				}
				i++
				if !l.utf8.open() {
					l.ctx = znCharEnd
				}
			case b == '\\':
				l.flags |= FlagHasEscapes
				l.escReturn = znCharEnd
				l.ctx = znEscape
				i++
			case b == '\'' || b < 0x20:
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			case b >= 0x80:
				if !l.utf8.step(b) {
					return out, lexErr(l.tokenStart, ErrInvalidUTF8)
				}
				i++
				if !l.utf8.open() {
					l.ctx = znCharEnd
				}
			default:
				l.ctx = znCharEnd
				i++
			}

		case znCharEnd:
			if b != '\'' {
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			}
			out = append(out, l.token(abs+1, ZONCharLiteral, l.flags))
			l.ctx = znNormal
			i++

		case znSlash:
			if b != '/' {
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			}
			l.ctx = znComment
			i++

		case znComment:
			if b == '\n' {
				out = append(out, l.token(abs, ZONLineComment, 0))
				l.ctx = znNormal
				// newline reprocessed as whitespace
			} else {
				i++
			}

		case znBackslash:
			if b != '\\' {
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			}
			l.ctx = znMultiline
			i++

		case znMultiline:
			if b == '\n' {
				out = append(out, l.token(abs, ZONMultilineString, 0))
				l.ctx = znNormal
			} else {
				i++
			}

		case znDot:
			switch {
			case b == '{':
				out = append(out, l.token(abs+1, ZONDotBraceOpen, 0))
				l.ctx = znNormal
				i++
			case isIdentStart(b):
				l.ctx = znDotIdent
				i++
			default:
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			}

		case znIdent, znDotIdent:
			if isIdentPart(b) {
				if err := l.capCheck(abs); err != nil {
					return out, err
				}
				i++
			} else {
				kind := ZONIdentifier
				if l.ctx == znDotIdent {
					kind = ZONDotIdentifier
				}
				out = append(out, l.token(abs, kind, 0))
				l.ctx = znNormal
			}

		case znNumber:
			consume, done, err := l.num.step(b)
			switch {
			case err != nil:
				return out, lexErr(l.tokenStart, err)
			case done:
				out = append(out, l.token(abs, ZONNumber, l.num.flags()))
				l.ctx = znNormal
			case consume:
				if err := l.capCheck(abs); err != nil {
					return out, err
				}
				i++
			}
		}
	}

	switch l.ctx {
	case znString, znEscape, znEscHex, znEscUni, znChar, znCharEnd,
		znIdent, znDotIdent, znNumber, znDot:
		if err := l.retain(chunk, chunkStart); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Finish terminates the stream at absolute offset end.
func (l *ZONLexer) Finish(end uint32, out []StreamToken) ([]StreamToken, error) {
	switch l.ctx {
	case znNormal:
		return out, nil
	case znWhitespace:
		out = append(out, l.token(end, ZONWhitespace, 0))
	case znComment:
		out = append(out, l.token(end, ZONLineComment, 0))
	case znMultiline:
		out = append(out, l.token(end, ZONMultilineString, 0))
	case znIdent:
		out = append(out, l.token(end, ZONIdentifier, 0))
	case znDotIdent:
		out = append(out, l.token(end, ZONDotIdentifier, 0))
	case znNumber:
		if !l.num.complete() {
			return out, lexErr(l.tokenStart, ErrUnterminatedToken)
		}
		out = append(out, l.token(end, ZONNumber, l.num.flags()))
	default:
		return out, lexErr(l.tokenStart, ErrUnterminatedToken)
	}
	l.ctx = znNormal
	return out, nil
}

// zonNumState tracks Zig number grammar: optional sign, optional 0x/0o/0b
// radix prefix, digit-separating underscores, fraction and e/p exponents.
type zonNumState struct {
	seenMinus   bool
	zeroFirst   bool // first digit was 0: a radix prefix may follow
	radix       byte // 0 means decimal
	radixPrefix bool
	intDigits   uint8 // capped at 2, only 0/1/many matters

	seenIntDigit bool
	seenDot      bool
	seenFrac     bool
	seenExp      bool
	seenExpSign  bool
	seenExpDigit bool

	lastDigit      bool
	lastUnderscore bool
}

func (n zonNumState) complete() bool {
	if !n.seenIntDigit || n.lastUnderscore {
		return false
	}
	if n.seenDot && !n.seenFrac {
		return false
	}
	if n.seenExp && !n.seenExpDigit {
		return false
	}
	return true
}

func (n zonNumState) flags() uint8 {
	var f uint8
	if n.seenDot || n.seenExp {
		f |= FlagFloat
	}
	if n.seenMinus {
		f |= FlagNegative
	}
	if n.radixPrefix {
		f |= FlagNonDecimal
	}
	return f
}

func (n zonNumState) isRadixDigit(b byte) bool {
	switch n.radix {
	case 16:
		return isHexDigit(b)
	case 8:
		return b >= '0' && b <= '7'
	case 2:
		return b == '0' || b == '1'
	default:
		return isDigit(b)
	}
}

// expChar reports whether b introduces an exponent for the active radix:
// e/E for decimal, p/P for hex (where e is a digit).
func (n zonNumState) expChar(b byte) bool {
	if n.radix == 16 {
		return b == 'p' || b == 'P'
	}
	return b == 'e' || b == 'E'
}

func (n *zonNumState) step(b byte) (consume, done bool, err error) {
	switch {
	case b == '-' && !n.seenMinus && !n.seenIntDigit && !n.radixPrefix:
		n.seenMinus = true
		return true, false, nil

	case n.zeroFirst && !n.radixPrefix && n.intDigits == 1 && !n.seenDot && !n.seenExp &&
		!n.lastUnderscore &&
		(b == 'x' || b == 'X' || b == 'o' || b == 'O' || b == 'b' || b == 'B'):
		n.radixPrefix = true
		switch b {
		case 'x', 'X':
			n.radix = 16
		case 'o', 'O':
			n.radix = 8
		default:
			n.radix = 2
		}
		// Digits are required after the prefix.
		n.seenIntDigit = false
		n.intDigits = 0
		n.lastDigit = false
		return true, false, nil

	case b == '_':
		if !n.lastDigit {
			return false, false, ErrUnterminatedToken
		}
		n.lastDigit = false
		n.lastUnderscore = true
		return true, false, nil

	case n.seenExp:
		if isDigit(b) {
			n.seenExpDigit = true
			n.lastDigit = true
			n.lastUnderscore = false
			return true, false, nil
		}
		if (b == '+' || b == '-') && !n.seenExpSign && !n.seenExpDigit {
			n.seenExpSign = true
			return true, false, nil
		}
		if isIdentStart(b) {
			return false, false, ErrUnterminatedToken
		}
		if n.complete() {
			return false, true, nil
		}
		return false, false, ErrUnterminatedToken

	case n.isRadixDigit(b):
		if n.seenDot {
			n.seenFrac = true
		} else {
			if !n.seenIntDigit && b == '0' && n.radix == 0 {
				n.zeroFirst = true
			}
			n.seenIntDigit = true
			if n.intDigits < 2 {
				n.intDigits++
			}
		}
		n.lastDigit = true
		n.lastUnderscore = false
		return true, false, nil

	case b == '.' && n.seenIntDigit && !n.seenDot && !n.lastUnderscore &&
		(n.radix == 0 || n.radix == 16):
		n.seenDot = true
		n.lastDigit = false
		return true, false, nil

	case n.expChar(b) && n.seenIntDigit && (!n.seenDot || n.seenFrac) && !n.lastUnderscore:
		n.seenExp = true
		n.lastDigit = false
		return true, false, nil

	default:
		// A digit or letter directly after the number is malformed input
		// (0b12, 3x), not a token boundary.
		if isDigit(b) || isIdentStart(b) {
			return false, false, ErrUnterminatedToken
		}
		if n.complete() {
			return false, true, nil
		}
		return false, false, ErrUnterminatedToken
	}
}

// DecodeZONString unescapes the contents of a ZON string token. raw must
// include the surrounding double quotes.
func DecodeZONString(raw []byte) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", ErrUnterminatedToken
	}
	body := raw[1 : len(raw)-1]
	if !containsByte(body, '\\') {
		return string(body), nil
	}

	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(body) {
			return "", ErrInvalidEscapeSequence
		}
		switch body[i+1] {
		case 'n':
			sb.WriteByte('\n')
			i += 2
		case 'r':
			sb.WriteByte('\r')
			i += 2
		case 't':
			sb.WriteByte('\t')
			i += 2
		case '\\':
			sb.WriteByte('\\')
			i += 2
		case '\'':
			sb.WriteByte('\'')
			i += 2
		case '"':
			sb.WriteByte('"')
			i += 2
		case 'x':
			if i+4 > len(body) {
				return "", ErrInvalidEscapeSequence
			}
			v, err := strconv.ParseUint(string(body[i+2:i+4]), 16, 8)
			if err != nil {
				return "", ErrInvalidEscapeSequence
			}
			sb.WriteByte(byte(v))
			i += 4
		case 'u':
			if i+2 >= len(body) || body[i+2] != '{' {
				return "", ErrInvalidUnicodeEscape
			}
			closing := i + 3
			for closing < len(body) && body[closing] != '}' {
				closing++
			}
			if closing == len(body) || closing == i+3 {
				return "", ErrInvalidUnicodeEscape
			}
			v, err := strconv.ParseUint(string(body[i+3:closing]), 16, 32)
			if err != nil || v > 0x10ffff {
				return "", ErrInvalidUnicodeEscape
			}
			sb.WriteRune(rune(v))
			i = closing + 1
		default:
			return "", ErrInvalidEscapeSequence
		}
	}
	return sb.String(), nil
}

// DotIdentifierName strips the leading dot from a dot-identifier token's
// text.
func DotIdentifierName(raw []byte) string {
	if len(raw) > 0 && raw[0] == '.' {
		return string(raw[1:])
	}
	return string(raw)
}
