package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"factlex/internal/export"
	"factlex/internal/fact"
	"factlex/internal/lexer"
	"factlex/internal/persist"
	"factlex/internal/query"
	"factlex/internal/session"
	"factlex/internal/span"
)

// analyze runs the full pipeline over one file and returns the session.
func analyze(cmd *cobra.Command, path string) (*session.Session, error) {
	lang, err := resolveLanguage(path)
	if err != nil {
		return nil, err
	}
	s := session.New(lang, cfg)
	if err := s.AnalyzeFile(cmd.Context(), path); err != nil {
		return nil, err
	}
	return s, nil
}

func renderValue(v fact.Value, atoms *fact.AtomTable) string {
	switch v.Tag() {
	case fact.TagNone:
		return "-"
	case fact.TagAtom:
		if id, ok := v.AsAtom(); ok {
			if text, ok := atoms.Lookup(id); ok {
				return fmt.Sprintf("%q", text)
			}
		}
		return v.String()
	default:
		return v.String()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Print the token stream of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := resolveLanguage(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(data) > span.MaxOffset {
			return fmt.Errorf("%s exceeds the maximum analyzable size (%d bytes)", args[0], span.MaxOffset)
		}

		// Feed the lexer in config-sized chunks; the token stream is
		// identical no matter the chunk size.
		lx := lexer.New(lang)
		var tokens []lexer.StreamToken
		for offset := 0; offset < len(data); offset += cfg.Pipeline.ChunkSize {
			end := offset + cfg.Pipeline.ChunkSize
			if end > len(data) {
				end = len(data)
			}
			tokens, err = lx.TokenizeChunk(data[offset:end], uint32(offset), tokens)
			if err != nil {
				return err
			}
		}
		tokens, err = lx.Finish(uint32(len(data)), tokens)
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%s: %d tokens (%s)", args[0], len(tokens), lang)))
		for _, tok := range tokens {
			s := tok.Span.Span()
			fmt.Printf("%s  %s  %s\n",
				spanStyle.Render(fmt.Sprintf("%6d:%-6d", s.Start, s.End)),
				kindStyle.Render(fmt.Sprintf("%-18s", tok.KindName())),
				truncate(strconv.Quote(string(tok.Text(data))), 60))
		}
		return nil
	},
}

var factsCmd = &cobra.Command{
	Use:   "facts [file]",
	Short: "Print every fact extracted from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := analyze(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s: %d facts (%s)", args[0], s.Store.Len(), s.Lang)))
		printFacts(s.Store.All(), s.Atoms)
		return nil
	},
}

func printFacts(facts []fact.Fact, atoms *fact.AtomTable) {
	for _, f := range facts {
		fmt.Printf("#%-5d %s  %s  %-12s %.2f\n",
			f.ID,
			predicateStyle.Render(fmt.Sprintf("%-20s", f.Predicate)),
			spanStyle.Render(fmt.Sprintf("%11s", f.Subject)),
			renderValue(f.Object, atoms),
			f.ConfidenceFloat())
	}
}

var (
	queryPredicate  string
	querySpan       string
	queryConfidence float64
)

var queryCmd = &cobra.Command{
	Use:   "query [file]",
	Short: "Query facts by predicate, span, and confidence",
	Long: `Runs the pipeline over the file and answers a query over the extracted
facts. Multiple criteria intersect; a query with no criteria is empty.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var criteria query.Criteria
		if queryPredicate != "" {
			p, ok := fact.ParsePredicate(queryPredicate)
			if !ok {
				return fmt.Errorf("unknown predicate %q", queryPredicate)
			}
			criteria.Predicate = &p
		}
		if querySpan != "" {
			sp, err := parseSpan(querySpan)
			if err != nil {
				return err
			}
			packed := span.Pack(sp)
			criteria.Span = &packed
		}
		if cmd.Flags().Changed("min-confidence") {
			c := float32(queryConfidence)
			if c < 0 || c > 1 {
				return fmt.Errorf("min-confidence %v outside [0.0, 1.0]", queryConfidence)
			}
			criteria.MinConfidence = &c
		}

		s, err := analyze(cmd, args[0])
		if err != nil {
			return err
		}
		results := s.QueryFacts(criteria)
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s: %s matching facts",
			args[0], countStyle.Render(fmt.Sprintf("%d", len(results))))))
		printFacts(results, s.Atoms)
		return nil
	},
}

// parseSpan reads the CLI start:end form.
func parseSpan(s string) (span.Span, error) {
	start, end, ok := strings.Cut(s, ":")
	if !ok {
		return span.Span{}, fmt.Errorf("span %q must be start:end", s)
	}
	a, err := strconv.ParseUint(start, 10, 32)
	if err != nil {
		return span.Span{}, fmt.Errorf("span start: %w", err)
	}
	b, err := strconv.ParseUint(end, 10, 32)
	if err != nil {
		return span.Span{}, fmt.Errorf("span end: %w", err)
	}
	if a > b || b > span.MaxOffset {
		return span.Span{}, fmt.Errorf("span %q out of range", s)
	}
	return span.Span{Start: uint32(a), End: uint32(b)}, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats [file]",
	Short: "Run the pipeline and report store and cache statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := analyze(cmd, args[0])
		if err != nil {
			return err
		}

		// Touch every distinct subject span twice: the first pass fills
		// the cache, the second measures hits.
		seen := make(map[span.Packed]bool)
		var spans []span.Packed
		for _, f := range s.Store.All() {
			if !seen[f.Subject] {
				seen[f.Subject] = true
				spans = append(spans, f.Subject)
			}
		}
		for i := 0; i < 2; i++ {
			for _, p := range spans {
				s.FactsForSpan(p)
			}
		}

		st := s.Cache.GetStats()
		fmt.Println(headerStyle.Render(args[0]))
		fmt.Printf("language:    %s\n", s.Lang)
		fmt.Printf("source:      %s bytes\n", countStyle.Render(fmt.Sprintf("%d", len(s.Source()))))
		fmt.Printf("facts:       %s\n", countStyle.Render(fmt.Sprintf("%d", s.Store.Len())))
		fmt.Printf("atoms:       %s\n", countStyle.Render(fmt.Sprintf("%d", s.Atoms.Len())))
		fmt.Printf("spans:       %s\n", countStyle.Render(fmt.Sprintf("%d", len(spans))))
		fmt.Printf("cache:       %d hits / %d misses / %d evictions / %d cached facts\n",
			st.Hits, st.Misses, st.Evictions, st.Size)
		fmt.Printf("generation:  %d\n", s.Cache.Generation())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-analyze a file whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := analyze(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("watching %s: %d facts", args[0], s.Store.Len())))

		w, err := session.NewWatcher(s, func(s *session.Session, err error) {
			if err != nil {
				fmt.Println(errorStyle.Render("re-analysis failed: ") + err.Error())
				return
			}
			fmt.Printf("%s %s facts, generation %d\n",
				headerStyle.Render("updated:"),
				countStyle.Render(fmt.Sprintf("%d", s.Store.Len())),
				s.Cache.Generation())
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

var (
	exportDB     string
	exportMangle string
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export extracted facts to a SQLite snapshot or Datalog source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportDB == "" && exportMangle == "" {
			return fmt.Errorf("nothing to do: pass --db and/or --mangle")
		}
		s, err := analyze(cmd, args[0])
		if err != nil {
			return err
		}

		if exportDB != "" {
			snap, err := persist.Open(exportDB)
			if err != nil {
				return err
			}
			defer snap.Close()
			meta := persist.Meta{SourcePath: args[0], Language: s.Lang.String()}
			if err := snap.Save(s.Store, s.Atoms, meta); err != nil {
				return err
			}
			fmt.Printf("%s %d facts -> %s\n", headerStyle.Render("saved:"), s.Store.Len(), exportDB)
		}

		if exportMangle != "" {
			out := os.Stdout
			if exportMangle != "-" {
				f, err := os.Create(exportMangle)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := export.WriteDatalog(out, s.Store, s.Atoms); err != nil {
				return err
			}
			if exportMangle != "-" {
				fmt.Printf("%s %d facts -> %s\n", headerStyle.Render("exported:"), s.Store.Len(), exportMangle)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryPredicate, "predicate", "", "predicate name (e.g. is_object, has_key)")
	queryCmd.Flags().StringVar(&querySpan, "span", "", "exact subject span as start:end")
	queryCmd.Flags().Float64Var(&queryConfidence, "min-confidence", 0, "minimum confidence in [0.0, 1.0]")

	exportCmd.Flags().StringVar(&exportDB, "db", "", "write a SQLite snapshot to this path")
	exportCmd.Flags().StringVar(&exportMangle, "mangle", "", "write Datalog source to this path (- for stdout)")
}
