// Package session ties the pipeline together: one Session owns the atom
// table, fact store, cache, and query executor for a single analyzed file.
// Reads and lexing run as a two-stage pipeline so large files stream
// through fixed-size chunks instead of one monolithic buffer pass.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"factlex/internal/cache"
	"factlex/internal/config"
	"factlex/internal/extract"
	"factlex/internal/fact"
	"factlex/internal/lexer"
	"factlex/internal/logging"
	"factlex/internal/query"
	"factlex/internal/span"
)

// ErrFileTooLarge rejects inputs whose offsets would not fit a packed
// span. Checked once here, at the session boundary.
var ErrFileTooLarge = errors.New("session: file exceeds maximum analyzable size")

// ErrUnknownLanguage is returned when a file extension maps to no lexer.
var ErrUnknownLanguage = errors.New("session: cannot determine language")

// Session is one analysis of one file. All components share its lifetime;
// discarding the session discards every fact id and atom id it issued.
type Session struct {
	ID    string
	Lang  lexer.Language
	Path  string
	Atoms *fact.AtomTable
	Store *fact.Store
	Cache *cache.FactCache

	cfg    config.Config
	source []byte
	exec   *query.Executor
}

// New creates an empty session for the given language.
func New(lang lexer.Language, cfg config.Config) *Session {
	return &Session{
		ID:    uuid.NewString(),
		Lang:  lang,
		Atoms: fact.NewAtomTable(),
		Store: fact.NewStore(),
		Cache: cache.New(cfg.Cache.MaxFacts),
		cfg:   cfg,
	}
}

// ForFile creates a session with the language inferred from the file
// extension.
func ForFile(path string, cfg config.Config) (*Session, error) {
	lang, ok := lexer.ParseLanguage(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrUnknownLanguage, path)
	}
	return New(lang, cfg), nil
}

type chunk struct {
	data   []byte
	offset uint32
}

// AnalyzeFile runs the full pipeline over path: chunked read on one
// goroutine, lex+extract on another. The split exists because the lexer's
// resumption state makes it safe to feed chunks as they arrive; it never
// changes the token or fact sequence.
func (s *Session) AnalyzeFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("session: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("session: stat: %w", err)
	}
	if info.Size() > span.MaxOffset {
		return fmt.Errorf("%w: %d bytes, max %d", ErrFileTooLarge, info.Size(), span.MaxOffset)
	}
	s.Path = path

	chunks := make(chan chunk, 4)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		var offset uint32
		for {
			buf := make([]byte, s.cfg.Pipeline.ChunkSize)
			n, readErr := f.Read(buf)
			if n > 0 {
				select {
				case chunks <- chunk{data: buf[:n], offset: offset}:
					offset += uint32(n)
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if readErr == io.EOF {
				return nil
			}
			if readErr != nil {
				return fmt.Errorf("session: read: %w", readErr)
			}
		}
	})

	g.Go(func() error {
		lx := lexer.New(s.Lang)
		ex := extract.New(s.Lang, s.Atoms, s.Store)
		tokens := make([]lexer.StreamToken, 0, 256)
		for c := range chunks {
			var lexErr error
			tokens, lexErr = lx.TokenizeChunk(c.data, c.offset, tokens[:0])
			if lexErr != nil {
				return lexErr
			}
			s.source = append(s.source, c.data...)
			for _, tok := range tokens {
				if err := ex.Extract(tok, s.source); err != nil {
					return err
				}
			}
		}
		end := uint32(len(s.source))
		tokens, lexErr := lx.Finish(end, tokens[:0])
		if lexErr != nil {
			return lexErr
		}
		for _, tok := range tokens {
			if err := ex.Extract(tok, s.source); err != nil {
				return err
			}
		}
		return ex.Finish(end, s.source)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.exec = query.NewExecutor(s.Store)
	logging.Get(logging.CategorySession).Debugw("analysis complete",
		"session", s.ID, "path", path, "bytes", len(s.source), "facts", s.Store.Len())
	return nil
}

// AnalyzeBytes runs the pipeline over an in-memory buffer. Used by tests
// and by CLI paths that already hold the input. Like Reanalyze, it
// discards all derived state first, so repeated calls describe only the
// latest input.
func (s *Session) AnalyzeBytes(name string, data []byte) error {
	if len(data) > span.MaxOffset {
		return fmt.Errorf("%w: %d bytes, max %d", ErrFileTooLarge, len(data), span.MaxOffset)
	}
	s.Path = name
	s.Store = fact.NewStore()
	s.Atoms = fact.NewAtomTable()
	s.Cache.Clear()
	s.exec = nil
	s.source = append(s.source[:0], data...)
	if err := extract.ExtractAll(s.Lang, s.source, s.Atoms, s.Store); err != nil {
		return err
	}
	s.exec = query.NewExecutor(s.Store)
	return nil
}

// Reanalyze discards all derived state and runs the pipeline again over
// the session's file. Fact and atom ids issued before do not survive.
func (s *Session) Reanalyze(ctx context.Context) error {
	if s.Path == "" {
		return errors.New("session: nothing analyzed yet")
	}
	s.Store = fact.NewStore()
	s.Atoms = fact.NewAtomTable()
	s.source = s.source[:0]
	s.Cache.Clear()
	s.exec = nil
	return s.AnalyzeFile(ctx, s.Path)
}

// Source returns the analyzed bytes. Read-only by contract.
func (s *Session) Source() []byte {
	return s.source
}

// Executor returns the query executor, or nil before the first analysis.
func (s *Session) Executor() *query.Executor {
	return s.exec
}

// FactsForSpan returns every fact whose subject is exactly this span,
// consulting the cache first. Cache hits skip the index entirely.
func (s *Session) FactsForSpan(p span.Packed) []fact.Fact {
	if facts, ok := s.Cache.Get(p); ok {
		return facts
	}
	if s.exec == nil {
		return nil
	}
	facts := s.resolve(s.exec.QueryBySpan(p))
	s.Cache.Put(p, facts)
	return facts
}

// QueryFacts answers a complex query and resolves ids to facts.
func (s *Session) QueryFacts(c query.Criteria) []fact.Fact {
	if s.exec == nil {
		return nil
	}
	return s.resolve(s.exec.QueryComplex(c))
}

func (s *Session) resolve(ids []fact.ID) []fact.Fact {
	facts := make([]fact.Fact, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.Store.Get(id); ok {
			facts = append(facts, f)
		}
	}
	return facts
}
