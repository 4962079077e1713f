package lexer

// PartialBufferCap is the fixed capacity of a lexer's partial-token buffer:
// the bytes of one in-progress value token (string, char, number, literal,
// identifier) that may be carried across chunk boundaries. Any such token
// longer than this fails with ErrTokenTooLarge, whether or not a chunk
// boundary actually falls inside it, so chunking never changes the outcome.
// Whitespace, comments and multiline-string lines are resumed by offset
// alone and are exempt from the cap.
const PartialBufferCap = 4096

// Lexer is a per-language streaming tokenizer. Chunks must be fed in
// source order; offsets in emitted tokens are absolute. A Lexer holds a
// bounded on-stack state between calls and performs no heap allocation in
// the steady state (callers reuse the out slice across calls).
//
// After the last chunk, Finish flushes any token that legitimately ends at
// end of input and reports ErrUnterminatedToken for one that does not.
type Lexer interface {
	Language() Language

	// TokenizeChunk scans chunk, whose first byte sits at absolute offset
	// chunkStart, appends completed tokens to out and returns it. A token
	// still in progress at the end of the chunk is carried in lexer state
	// and completed by later chunks.
	TokenizeChunk(chunk []byte, chunkStart uint32, out []StreamToken) ([]StreamToken, error)

	// Finish terminates the stream at absolute offset end, flushing or
	// rejecting any in-progress token.
	Finish(end uint32, out []StreamToken) ([]StreamToken, error)

	// Reset returns the lexer to its initial state for reuse.
	Reset()
}

// New returns a fresh lexer for the given language.
func New(lang Language) Lexer {
	switch lang {
	case LangZON:
		return NewZONLexer()
	default:
		return NewJSONLexer()
	}
}

// Tokenize is the single-chunk convenience path: one buffer in, the full
// token sequence out.
func Tokenize(lang Language, source []byte) ([]StreamToken, error) {
	lx := New(lang)
	out, err := lx.TokenizeChunk(source, 0, nil)
	if err != nil {
		return nil, err
	}
	return lx.Finish(uint32(len(source)), out)
}

// numState tracks which sub-phase of the number grammar is in progress, so
// a number split after a sign, a decimal point, or mid-exponent resumes
// exactly where it stopped.
type numState struct {
	seenMinus    bool
	seenIntDigit bool
	leadingZero  bool
	seenDot      bool
	seenFrac     bool
	seenExp      bool
	seenExpSign  bool
	seenExpDigit bool
}

// complete reports whether the digits seen so far form a full number.
func (n numState) complete() bool {
	if !n.seenIntDigit {
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

func (n numState) flags() uint8 {
	var f uint8
	if n.seenDot || n.seenExp {
		f |= FlagFloat
	}
	if n.seenMinus {
		f |= FlagNegative
	}
	return f
}

// utf8State counts expected continuation bytes of a multi-byte sequence
// inside a string literal, so validation survives a chunk split in the
// middle of a rune.
type utf8State struct {
	remaining uint8
}

// step consumes one byte. It returns false when the byte violates UTF-8
// framing (stray or missing continuation byte, invalid lead byte).
func (u *utf8State) step(b byte) bool {
	if u.remaining > 0 {
		if b&0xc0 != 0x80 {
			return false
		}
		u.remaining--
		return true
	}
	switch {
	case b < 0x80:
		return true
	case b >= 0xc2 && b <= 0xdf:
		u.remaining = 1
	case b >= 0xe0 && b <= 0xef:
		u.remaining = 2
	case b >= 0xf0 && b <= 0xf4:
		u.remaining = 3
	default:
		return false
	}
	return true
}

// open reports whether a multi-byte sequence is still incomplete.
func (u utf8State) open() bool {
	return u.remaining > 0
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
