package lexer

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"factlex/internal/span"
)

// jsonContext enumerates the JSON lexer's resumable states. The context,
// the scalar sub-state fields and the partial buffer are the entire
// carry-over between chunks; together they are a few KiB and live inside
// the lexer value, never on the heap.
type jsonContext uint8

const (
	jsNormal jsonContext = iota
	jsWhitespace
	jsString
	jsEscape  // just consumed a backslash
	jsUnicode // inside \uXXXX, hexSeen digits consumed
	jsNumber
	jsLiteral // matching true/false/null
)

var jsonLiterals = [3]string{"true", "false", "null"}
var jsonLiteralKinds = [3]uint8{JSONTrue, JSONFalse, JSONNull}

// JSONLexer tokenizes JSON delivered in arbitrary chunks.
type JSONLexer struct {
	ctx        jsonContext
	tokenStart uint32
	buf        [PartialBufferCap]byte
	bufLen     int

	flags   uint8
	hexSeen uint8
	utf8    utf8State
	num     numState

	lit      uint8 // index into jsonLiterals
	litMatch uint8 // bytes of the literal matched so far
}

// NewJSONLexer returns a lexer in the initial state.
func NewJSONLexer() *JSONLexer {
	return &JSONLexer{}
}

func (l *JSONLexer) Language() Language {
	return LangJSON
}

// Reset returns the lexer to its initial state for reuse.
func (l *JSONLexer) Reset() {
	*l = JSONLexer{}
}

// Pending returns the buffered bytes of the in-progress token. Diagnostic
// accessor; empty between tokens.
func (l *JSONLexer) Pending() []byte {
	return l.buf[:l.bufLen]
}

func (l *JSONLexer) token(end uint32, kind, flags uint8) StreamToken {
	l.bufLen = 0
	return StreamToken{
		Span:  span.Pack(span.Span{Start: l.tokenStart, End: end}),
		Lang:  LangJSON,
		Kind:  kind,
		Flags: flags,
	}
}

func single(lang Language, abs uint32, kind uint8) StreamToken {
	return StreamToken{
		Span: span.Pack(span.Span{Start: abs, End: abs + 1}),
		Lang: lang,
		Kind: kind,
	}
}

// capCheck enforces the partial-buffer capacity as a uniform maximum token
// size, so the error fires at the same input regardless of chunking.
func (l *JSONLexer) capCheck(abs uint32) error {
	if abs-l.tokenStart >= PartialBufferCap {
		return lexErr(l.tokenStart, ErrTokenTooLarge)
	}
	return nil
}

// retain copies the in-progress token's bytes from this chunk into the
// partial buffer before the chunk is released.
func (l *JSONLexer) retain(chunk []byte, chunkStart uint32) error {
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
func (l *JSONLexer) TokenizeChunk(chunk []byte, chunkStart uint32, out []StreamToken) ([]StreamToken, error) {
	i := 0
	for i < len(chunk) {
		b := chunk[i]
		abs := chunkStart + uint32(i)

		switch l.ctx {
		case jsNormal:
			switch {
			case isSpace(b):
				l.ctx = jsWhitespace
				l.tokenStart = abs
				i++
			case b == '{':
				out = append(out, single(LangJSON, abs, JSONObjectOpen))
				i++
			case b == '}':
				out = append(out, single(LangJSON, abs, JSONObjectClose))
				i++
			case b == '[':
				out = append(out, single(LangJSON, abs, JSONArrayOpen))
				i++
			case b == ']':
				out = append(out, single(LangJSON, abs, JSONArrayClose))
				i++
			case b == ':':
				out = append(out, single(LangJSON, abs, JSONColon))
				i++
			case b == ',':
				out = append(out, single(LangJSON, abs, JSONComma))
				i++
			case b == '"':
				l.ctx = jsString
				l.tokenStart = abs
				l.flags = 0
				l.utf8 = utf8State{}
				i++
			case b == '-' || isDigit(b):
				l.ctx = jsNumber
				l.tokenStart = abs
				l.num = numState{}
				// the number state consumes this byte
			case b == 't' || b == 'f' || b == 'n':
				l.ctx = jsLiteral
				l.tokenStart = abs
				switch b {
				case 't':
					l.lit = 0
				case 'f':
					l.lit = 1
				default:
					l.lit = 2
				}
				l.litMatch = 0
			default:
				return out, lexErr(abs, ErrUnexpectedByte)
			}

		case jsWhitespace:
			if isSpace(b) {
				i++
			} else {
				out = append(out, l.token(abs, JSONWhitespace, 0))
				l.ctx = jsNormal
			}

		case jsString:
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
				out = append(out, l.token(abs+1, JSONString, l.flags))
				l.ctx = jsNormal
				i++
			case b == '\\':
				l.flags |= FlagHasEscapes
				l.ctx = jsEscape
				i++
			case b < 0x20:
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			default:
				i++
			}

		case jsEscape:
			switch b {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				l.ctx = jsString
				i++
			case 'u':
				l.flags |= FlagHasUnicodeEscape
				l.ctx = jsUnicode
				l.hexSeen = 0
				i++
			default:
				return out, lexErr(l.tokenStart, ErrInvalidEscapeSequence)
			}

		case jsUnicode:
			if !isHexDigit(b) {
				return out, lexErr(l.tokenStart, ErrInvalidUnicodeEscape)
			}
			l.hexSeen++
			i++
			if l.hexSeen == 4 {
				l.ctx = jsString
			}

		case jsNumber:
			consume, done, err := l.num.step(b)
			switch {
			case err != nil:
				return out, lexErr(l.tokenStart, err)
			case done:
				// Terminator byte: not part of the number, reprocessed
				// in jsNormal, so the cap does not apply to it.
				out = append(out, l.token(abs, JSONNumber, l.num.flags()))
				l.ctx = jsNormal
			case consume:
				if err := l.capCheck(abs); err != nil {
					return out, err
				}
				i++
			}

		case jsLiteral:
			target := jsonLiterals[l.lit]
			if b != target[l.litMatch] {
				return out, lexErr(l.tokenStart, ErrUnexpectedByte)
			}
			l.litMatch++
			i++
			if int(l.litMatch) == len(target) {
				out = append(out, l.token(abs+1, jsonLiteralKinds[l.lit], 0))
				l.ctx = jsNormal
			}
		}
	}

	// Carry the in-progress value token's bytes across the boundary.
	switch l.ctx {
	case jsString, jsEscape, jsUnicode, jsNumber, jsLiteral:
		if err := l.retain(chunk, chunkStart); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Finish terminates the stream at absolute offset end.
func (l *JSONLexer) Finish(end uint32, out []StreamToken) ([]StreamToken, error) {
	switch l.ctx {
	case jsNormal:
		return out, nil
	case jsWhitespace:
		out = append(out, l.token(end, JSONWhitespace, 0))
		l.ctx = jsNormal
		return out, nil
	case jsNumber:
		if l.num.complete() {
			out = append(out, l.token(end, JSONNumber, l.num.flags()))
			l.ctx = jsNormal
			return out, nil
		}
		return out, lexErr(l.tokenStart, ErrUnterminatedToken)
	default:
		return out, lexErr(l.tokenStart, ErrUnterminatedToken)
	}
}

// step advances the number sub-state by one byte. consume means the byte
// belongs to the number; done means the number ended just before it.
func (n *numState) step(b byte) (consume, done bool, err error) {
	switch {
	case b == '-' && !n.seenMinus && !n.seenIntDigit && !n.seenDot && !n.seenExp:
		n.seenMinus = true
		return true, false, nil
	case isDigit(b):
		switch {
		case n.seenExp:
			n.seenExpDigit = true
		case n.seenDot:
			n.seenFrac = true
		default:
			if n.seenIntDigit && n.leadingZero {
				// 01 is not a JSON number
				return false, false, ErrUnexpectedByte
			}
			if !n.seenIntDigit && b == '0' {
				n.leadingZero = true
			}
			n.seenIntDigit = true
		}
		return true, false, nil
	case b == '.' && n.seenIntDigit && !n.seenDot && !n.seenExp:
		n.seenDot = true
		return true, false, nil
	case (b == 'e' || b == 'E') && n.seenIntDigit && !n.seenExp && (!n.seenDot || n.seenFrac):
		n.seenExp = true
		return true, false, nil
	case (b == '+' || b == '-') && n.seenExp && !n.seenExpSign && !n.seenExpDigit:
		n.seenExpSign = true
		return true, false, nil
	default:
		if n.complete() {
			return false, true, nil
		}
		return false, false, ErrUnterminatedToken
	}
}

// DecodeJSONString unescapes the contents of a JSON string token,
// including surrogate-pair \u escapes. raw must include the surrounding
// quotes. The fast path for escape-free strings allocates only the result.
func DecodeJSONString(raw []byte) (string, error) {
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
		case '"':
			sb.WriteByte('"')
			i += 2
		case '\\':
			sb.WriteByte('\\')
			i += 2
		case '/':
			sb.WriteByte('/')
			i += 2
		case 'b':
			sb.WriteByte('\b')
			i += 2
		case 'f':
			sb.WriteByte('\f')
			i += 2
		case 'n':
			sb.WriteByte('\n')
			i += 2
		case 'r':
			sb.WriteByte('\r')
			i += 2
		case 't':
			sb.WriteByte('\t')
			i += 2
		case 'u':
			r, n, err := decodeUnicodeEscape(body[i:])
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
			i += n
		default:
			return "", ErrInvalidEscapeSequence
		}
	}
	return sb.String(), nil
}

// decodeUnicodeEscape decodes \uXXXX at the start of b, consuming a
// trailing low surrogate when the first unit is a high surrogate.
func decodeUnicodeEscape(b []byte) (rune, int, error) {
	if len(b) < 6 {
		return 0, 0, ErrInvalidUnicodeEscape
	}
	hi, err := strconv.ParseUint(string(b[2:6]), 16, 32)
	if err != nil {
		return 0, 0, ErrInvalidUnicodeEscape
	}
	r := rune(hi)
	if !utf16.IsSurrogate(r) {
		return r, 6, nil
	}
	if len(b) >= 12 && b[6] == '\\' && b[7] == 'u' {
		lo, err := strconv.ParseUint(string(b[8:12]), 16, 32)
		if err == nil {
			if dec := utf16.DecodeRune(r, rune(lo)); dec != utf8.RuneError {
				return dec, 12, nil
			}
		}
	}
	// Unpaired surrogate: keep the replacement rune rather than failing,
	// matching encoding/json.
	return utf8.RuneError, 6, nil
}

func containsByte(b []byte, c byte) bool {
	for _, x := range b {
		if x == c {
			return true
		}
	}
	return false
}
