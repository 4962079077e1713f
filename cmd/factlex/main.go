// Command factlex tokenizes JSON and ZON sources, extracts facts, and
// answers queries over them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"factlex/internal/config"
	"factlex/internal/lexer"
	"factlex/internal/logging"
)

var (
	// Global flags
	verbose    bool
	jsonLog    bool
	configPath string
	langName   string
	chunkSize  int

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "factlex",
	Short: "factlex - streaming lexer and fact query engine for JSON/ZON",
	Long: `factlex tokenizes JSON and ZON sources with a chunk-resumable lexer,
extracts 24-byte facts about every span, and answers predicate, span,
and confidence queries over them.

Tokenization is chunk-invariant: any way of splitting the input into
chunks produces the identical token and fact sequence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if chunkSize > 0 {
			cfg.Pipeline.ChunkSize = chunkSize
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return logging.Init(verbose || cfg.Logging.Verbose, jsonLog || cfg.Logging.JSONFormat)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// resolveLanguage picks the lexer language: explicit flag first, file
// extension otherwise.
func resolveLanguage(path string) (lexer.Language, error) {
	name := langName
	if name == "" {
		lang, ok := lexer.ParseLanguage(filepath.Ext(path))
		if !ok {
			return 0, fmt.Errorf("cannot determine language of %q; use --lang", path)
		}
		return lang, nil
	}
	lang, ok := lexer.ParseLanguage(name)
	if !ok {
		return 0, fmt.Errorf("unknown language %q (json, zon)", name)
	}
	return lang, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "factlex.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&langName, "lang", "", "source language (json, zon); default: by extension")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0, "pipeline read chunk size in bytes")

	rootCmd.AddCommand(lexCmd, factsCmd, queryCmd, statsCmd, watchCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
