package lexer

import (
	"errors"
	"fmt"
)

// Lexing failure classes. All are local failures: the embedding layer
// decides whether to skip ahead and continue or abort the whole lex.
var (
	ErrUnterminatedToken     = errors.New("lexer: unterminated token")
	ErrInvalidEscapeSequence = errors.New("lexer: invalid escape sequence")
	ErrInvalidUnicodeEscape  = errors.New("lexer: invalid unicode escape")
	ErrTokenTooLarge         = errors.New("lexer: token exceeds partial buffer capacity")
	ErrUnexpectedByte        = errors.New("lexer: unexpected byte")
	ErrInvalidUTF8           = errors.New("lexer: invalid UTF-8 in string literal")
)

// Error wraps a failure class with the absolute byte offset where the
// offending token began. Editor-style consumers need the position, not
// just the class.
type Error struct {
	Offset uint32
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func lexErr(offset uint32, err error) error {
	return &Error{Offset: offset, Err: err}
}
