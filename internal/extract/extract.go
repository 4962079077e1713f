// Package extract turns a stream of lexer tokens into facts. The extractor
// is strictly streaming: it never looks ahead of the token it is given, and
// keeps only a bracket stack plus a one-token lookbehind, so feeding it the
// same token sequence always yields the same fact sequence no matter how the
// source was chunked upstream.
package extract

import (
	"fmt"
	"strconv"

	"factlex/internal/fact"
	"factlex/internal/lexer"
	"factlex/internal/logging"
	"factlex/internal/span"
)

// Extractor appends facts derived from one token stream to a bound store.
// All facts it emits are syntactically certain, so confidence is always 1.0.
//
// Key detection works by lookbehind: a JSON string (or ZON dot identifier)
// is held pending until the next significant token shows whether it is a key
// or a value. Everything else is emitted at the token that completes it.
type Extractor struct {
	lang  lexer.Language
	atoms *fact.AtomTable
	store *fact.Store

	stack   []frame
	pending pendingToken
}

// frame records one unclosed container delimiter.
type frame struct {
	open  span.Span
	kind  uint8 // the opening token kind
	items int   // direct children seen so far
}

// pendingToken is the one-token lookbehind slot.
type pendingToken struct {
	tok   lexer.StreamToken
	valid bool
}

// New creates an extractor bound to an atom table and fact store. Both are
// owned by the caller; one extractor serves one document.
func New(lang lexer.Language, atoms *fact.AtomTable, store *fact.Store) *Extractor {
	return &Extractor{lang: lang, atoms: atoms, store: store}
}

// Extract consumes one token. source must cover every byte the token's span
// references; in a chunked pipeline the accumulated source so far satisfies
// this, since spans never point past what has been lexed.
func (e *Extractor) Extract(tok lexer.StreamToken, source []byte) error {
	if tok.IsTrivia() {
		return nil
	}
	switch e.lang {
	case lexer.LangJSON:
		return e.extractJSON(tok, source)
	case lexer.LangZON:
		return e.extractZON(tok, source)
	default:
		return fmt.Errorf("extract: unsupported language %d", e.lang)
	}
}

// Finish flushes the lookbehind slot and emits the document fact covering
// [0, end). Call exactly once, after the lexer's own Finish.
func (e *Extractor) Finish(end uint32, source []byte) error {
	if err := e.flushPending(source); err != nil {
		return err
	}
	return e.emit(span.Span{Start: 0, End: end}, fact.IsDocument, fact.None())
}

func (e *Extractor) emit(s span.Span, p fact.Predicate, obj fact.Value) error {
	_, err := e.store.AppendBuilt(fact.NewBuilder().
		WithSubject(s).
		WithPredicate(p).
		WithObject(obj))
	return err
}

func (e *Extractor) push(tok lexer.StreamToken) {
	e.stack = append(e.stack, frame{open: tok.Span.Span(), kind: tok.Kind})
}

// pop closes the innermost container and emits its structural facts. A close
// with no matching open is tolerated silently: the extractor records facts,
// it does not validate grammar.
func (e *Extractor) pop(closeSpan span.Span, wantOpen uint8, p fact.Predicate) error {
	if len(e.stack) == 0 {
		return nil
	}
	top := e.stack[len(e.stack)-1]
	if top.kind != wantOpen {
		return nil
	}
	e.stack = e.stack[:len(e.stack)-1]

	whole := span.Merge(top.open, closeSpan)
	if err := e.emit(whole, p, fact.None()); err != nil {
		return err
	}
	if top.items == 0 {
		if err := e.emit(whole, fact.IsEmpty, fact.None()); err != nil {
			return err
		}
	}
	e.countItem()
	return nil
}

// countItem credits a completed value to the enclosing container.
func (e *Extractor) countItem() {
	if len(e.stack) > 0 {
		e.stack[len(e.stack)-1].items++
	}
}

// numberFacts emits the facts shared by JSON and ZON numbers. Integer
// payloads that fit the value's 56-bit range ride along as has_value.
func (e *Extractor) numberFacts(tok lexer.StreamToken, source []byte, base int) error {
	s := tok.Span.Span()
	if err := e.emit(s, fact.IsNumber, fact.None()); err != nil {
		return err
	}
	if tok.Flags&lexer.FlagFloat != 0 {
		if err := e.emit(s, fact.IsFloat, fact.None()); err != nil {
			return err
		}
		return e.emit(s, fact.HasValue, fact.SpanRef(tok.Span))
	}
	if err := e.emit(s, fact.IsInteger, fact.None()); err != nil {
		return err
	}
	v, err := strconv.ParseInt(string(tok.Text(source)), base, 64)
	if err != nil || v < -(1<<55) || v >= 1<<55 {
		// Out of payload range: the span still identifies the number.
		return e.emit(s, fact.HasValue, fact.SpanRef(tok.Span))
	}
	return e.emit(s, fact.HasValue, fact.Number(v))
}

// --- JSON ---

func (e *Extractor) extractJSON(tok lexer.StreamToken, source []byte) error {
	// A pending string becomes a key if and only if a colon follows it.
	if e.pending.valid {
		prev := e.pending.tok
		e.pending.valid = false
		if tok.Kind == lexer.JSONColon {
			if err := e.jsonKeyFacts(prev, source); err != nil {
				return err
			}
			return nil
		}
		if err := e.jsonStringValueFacts(prev); err != nil {
			return err
		}
	}

	switch tok.Kind {
	case lexer.JSONObjectOpen, lexer.JSONArrayOpen:
		e.push(tok)
	case lexer.JSONObjectClose:
		return e.pop(tok.Span.Span(), lexer.JSONObjectOpen, fact.IsObject)
	case lexer.JSONArrayClose:
		return e.pop(tok.Span.Span(), lexer.JSONArrayOpen, fact.IsArray)
	case lexer.JSONString:
		e.pending = pendingToken{tok: tok, valid: true}
	case lexer.JSONNumber:
		e.countItem()
		return e.numberFacts(tok, source, 10)
	case lexer.JSONTrue:
		e.countItem()
		s := tok.Span.Span()
		if err := e.emit(s, fact.IsBool, fact.None()); err != nil {
			return err
		}
		return e.emit(s, fact.IsTrue, fact.None())
	case lexer.JSONFalse:
		e.countItem()
		s := tok.Span.Span()
		if err := e.emit(s, fact.IsBool, fact.None()); err != nil {
			return err
		}
		return e.emit(s, fact.IsFalse, fact.None())
	case lexer.JSONNull:
		e.countItem()
		return e.emit(tok.Span.Span(), fact.IsNull, fact.None())
	case lexer.JSONColon, lexer.JSONComma:
		// Punctuation carries no facts of its own.
	}
	return nil
}

// jsonKeyFacts records a string that turned out to be an object key. The
// unescaped key text is interned so the fact's payload stays 8 bytes.
func (e *Extractor) jsonKeyFacts(tok lexer.StreamToken, source []byte) error {
	s := tok.Span.Span()
	key, err := lexer.DecodeJSONString(tok.Text(source))
	if err != nil {
		return fmt.Errorf("extract: key at %s: %w", s, err)
	}
	if err := e.emit(s, fact.IsKey, fact.None()); err != nil {
		return err
	}
	return e.emit(s, fact.HasKey, fact.Atom(e.atoms.Intern(key)))
}

func (e *Extractor) jsonStringValueFacts(tok lexer.StreamToken) error {
	e.countItem()
	s := tok.Span.Span()
	if err := e.emit(s, fact.IsString, fact.None()); err != nil {
		return err
	}
	return e.emit(s, fact.HasValue, fact.SpanRef(tok.Span))
}

// --- ZON ---

func (e *Extractor) extractZON(tok lexer.StreamToken, source []byte) error {
	// A pending dot identifier is a field key when `=` follows, otherwise
	// an enum literal value (`.mode = .fast`).
	if e.pending.valid {
		prev := e.pending.tok
		e.pending.valid = false
		if tok.Kind == lexer.ZONEquals {
			if err := e.zonKeyFacts(prev, source); err != nil {
				return err
			}
			return nil
		}
		if err := e.zonEnumFacts(prev); err != nil {
			return err
		}
	}

	switch tok.Kind {
	case lexer.ZONDotBraceOpen:
		e.push(tok)
	case lexer.ZONBraceClose:
		// ZON does not distinguish struct from tuple literals lexically;
		// both surface as is_object.
		return e.pop(tok.Span.Span(), lexer.ZONDotBraceOpen, fact.IsObject)
	case lexer.ZONDotIdentifier:
		e.pending = pendingToken{tok: tok, valid: true}
	case lexer.ZONString:
		e.countItem()
		s := tok.Span.Span()
		if err := e.emit(s, fact.IsString, fact.None()); err != nil {
			return err
		}
		return e.emit(s, fact.HasValue, fact.SpanRef(tok.Span))
	case lexer.ZONMultilineString:
		e.countItem()
		return e.emit(tok.Span.Span(), fact.IsMultilineString, fact.None())
	case lexer.ZONCharLiteral:
		e.countItem()
		return e.emit(tok.Span.Span(), fact.IsCharLiteral, fact.None())
	case lexer.ZONNumber:
		e.countItem()
		// Base 0 follows the 0x/0o/0b prefix and tolerates underscores.
		return e.numberFacts(tok, source, 0)
	case lexer.ZONIdentifier:
		e.countItem()
		return e.zonIdentifierFacts(tok, source)
	case lexer.ZONEquals, lexer.ZONComma:
		// Punctuation carries no facts of its own.
	}
	return nil
}

func (e *Extractor) zonKeyFacts(tok lexer.StreamToken, source []byte) error {
	s := tok.Span.Span()
	name := lexer.DotIdentifierName(tok.Text(source))
	if err := e.emit(s, fact.IsKey, fact.None()); err != nil {
		return err
	}
	return e.emit(s, fact.HasKey, fact.Atom(e.atoms.Intern(name)))
}

func (e *Extractor) zonEnumFacts(tok lexer.StreamToken) error {
	e.countItem()
	return e.emit(tok.Span.Span(), fact.IsEnumLiteral, fact.None())
}

// zonIdentifierFacts classifies bare identifiers. true/false/null are
// ordinary identifiers to the lexer; their meaning is decided here.
func (e *Extractor) zonIdentifierFacts(tok lexer.StreamToken, source []byte) error {
	s := tok.Span.Span()
	switch string(tok.Text(source)) {
	case "true":
		if err := e.emit(s, fact.IsBool, fact.None()); err != nil {
			return err
		}
		return e.emit(s, fact.IsTrue, fact.None())
	case "false":
		if err := e.emit(s, fact.IsBool, fact.None()); err != nil {
			return err
		}
		return e.emit(s, fact.IsFalse, fact.None())
	case "null":
		return e.emit(s, fact.IsNull, fact.None())
	default:
		return e.emit(s, fact.IsIdentifier, fact.None())
	}
}

func (e *Extractor) flushPending(source []byte) error {
	if !e.pending.valid {
		return nil
	}
	prev := e.pending.tok
	e.pending.valid = false
	switch e.lang {
	case lexer.LangJSON:
		return e.jsonStringValueFacts(prev)
	case lexer.LangZON:
		return e.zonEnumFacts(prev)
	}
	return nil
}

// ExtractAll lexes source in one chunk and extracts every fact. Convenience
// for callers that already hold the whole input; the chunked pipeline in the
// session package drives Extract token by token instead.
func ExtractAll(lang lexer.Language, source []byte, atoms *fact.AtomTable, store *fact.Store) error {
	tokens, err := lexer.Tokenize(lang, source)
	if err != nil {
		return err
	}
	ex := New(lang, atoms, store)
	for _, tok := range tokens {
		if err := ex.Extract(tok, source); err != nil {
			return err
		}
	}
	if err := ex.Finish(uint32(len(source)), source); err != nil {
		return err
	}
	logging.Get(logging.CategoryExtract).Debugw("extraction complete",
		"lang", lang.String(), "tokens", len(tokens), "facts", store.Len())
	return nil
}
