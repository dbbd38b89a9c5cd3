// Package main provides the CLI entrypoint for typetest.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typetest/internal/config"
	"github.com/verte-zerg/typetest/internal/engine"
	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/logging"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/store"
	"github.com/verte-zerg/typetest/internal/tui"
	"github.com/verte-zerg/typetest/internal/wordlist"
)

const (
	defaultLang        = "en"
	defaultWeakTop     = 8
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 20
)

var (
	testLang       string
	testDuration   int
	testWordList   string
	testMaxWrong   int
	testSeed       int64
	testFocusWeak  bool
	testWeakTop    int
	testWeakFactor float64
	testWeakWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typetest",
		Short:         "Timed typing speed test",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTestCmd,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&testLang, "lang", defaultLang, "language code")
	flags.IntVar(&testDuration, "duration", engine.DefaultDurationSeconds, "test length in seconds")
	flags.StringVar(&testWordList, "wordlist", "", "word list file (default: XDG wordlists dir, then built-in)")
	flags.IntVar(&testMaxWrong, "max-wrong", engine.DefaultMaxWrongPerWord, "wrong characters allowed per word (0 disables the limit)")
	flags.Int64Var(&testSeed, "seed", 0, "random seed for the word stream (0 picks one)")
	flags.BoolVar(&testFocusWeak, "focus-weak", false, "bias words toward weak characters")
	flags.IntVar(&testWeakTop, "weak-top", defaultWeakTop, "number of weak characters to focus on")
	flags.Float64Var(&testWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak characters")
	flags.IntVar(&testWeakWindow, "weak-window", defaultWeakWindow, "number of recent sessions to compute weak chars")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLangsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLastCmd())
	rootCmd.AddCommand(newShareCmd())
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newReplayCmd())

	return rootCmd
}

// loadTestConfig merges the config file into the test flags. Flags set on
// the command line win.
func loadTestConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.Config, error) {
	t := fileCfg.Test
	applyConfig(cmd, "lang", &testLang, t.Lang)
	applyConfig(cmd, "duration", &testDuration, t.Duration)
	applyConfig(cmd, "wordlist", &testWordList, t.WordList)
	applyConfig(cmd, "max-wrong", &testMaxWrong, t.MaxWrong)
	applyConfig(cmd, "focus-weak", &testFocusWeak, t.FocusWeak)
	applyConfig(cmd, "weak-top", &testWeakTop, t.WeakTop)
	applyConfig(cmd, "weak-factor", &testWeakFactor, t.WeakFactor)
	applyConfig(cmd, "weak-window", &testWeakWindow, t.WeakWindow)

	cfg := model.Config{
		Lang:            testLang,
		DurationSeconds: testDuration,
		WordListPath:    testWordList,
		MaxWrongPerWord: testMaxWrong,
		Seed:            testSeed,
		FocusWeak:       testFocusWeak,
		WeakTop:         testWeakTop,
		WeakFactor:      testWeakFactor,
		WeakWindow:      testWeakWindow,
	}
	if cfg.WordListPath == "" {
		cfg.WordListPath = config.DefaultWordListPath(cfg.Lang)
	}
	return cfg, validateConfig(cfg)
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	cfgPath := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := loadTestConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger(fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(logCloser)

	words, source, err := wordlist.Resolve(cfg.WordListPath, cfg.Lang)
	if err != nil {
		return wordListLoadError(cfg.Lang, cfg.WordListPath, err)
	}
	genOpts := []generator.Option{}
	if cfg.Seed != 0 {
		genOpts = append(genOpts, generator.WithSeed(cfg.Seed))
	}
	gen, err := generator.New(words, genOpts...)
	if errors.Is(err, generator.ErrEmptyDictionary) {
		return fmt.Errorf("word list %s has no usable %s words", source, cfg.Lang)
	}
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	eng := engine.New(engine.Config{
		Lang:            cfg.Lang,
		DurationSeconds: cfg.DurationSeconds,
		MaxWrongPerWord: cfg.MaxWrongPerWord,
	}, gen, engine.WithLogger(logger))

	m := tui.NewModel(eng, tui.Options{
		Lang:         cfg.Lang,
		WordListPath: source,
		ShareBaseURL: fileCfg.ShareBaseURL(),
		FocusWeak:    cfg.FocusWeak,
		WeakTop:      cfg.WeakTop,
		WeakFactor:   cfg.WeakFactor,
		WeakWindow:   cfg.WeakWindow,
		Store:        st,
		Biaser:       gen,
		Logger:       logger,
	})
	if cfg.FocusWeak {
		// The first window was drawn before the weak set was known.
		eng.NewTest()
	}
	program := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := config.Watch(ctx, cfgPath, func(c config.FileConfig, err error) {
		program.Send(tui.ConfigMsg{Config: c, Err: err})
	}); err != nil {
		logger.Warn("config watcher disabled", "err", err)
	}

	logger.Info("starting test", "lang", cfg.Lang, "duration_s", cfg.DurationSeconds, "words", source)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newLogger(fileCfg config.FileConfig) (*slog.Logger, io.Closer, error) {
	lc := logging.Config{Path: config.DefaultLogPath()}
	if v := fileCfg.Log.Level; v != nil {
		lc.Level = *v
	}
	if v := fileCfg.Log.Format; v != nil {
		lc.Format = logging.Format(*v)
	}
	if v := fileCfg.Log.Path; v != nil && *v != "" {
		lc.Path = *v
	}
	logger, closer, err := logging.New(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, closer, nil
}

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func applyConfig[T any](cmd *cobra.Command, name string, target, value *T) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	if cfg.DurationSeconds <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.MaxWrongPerWord < 0 {
		return fmt.Errorf("--max-wrong must be >= 0")
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	return nil
}

func wordListLoadError(lang, path string, err error) error {
	return fmt.Errorf("failed to load word list: %w\nexpected word list at: %s\nlanguage %q has no built-in list\nRun: typetest langs", err, path, lang)
}

func closeQuietly(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logErrf("failed to close: %v\n", err)
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
