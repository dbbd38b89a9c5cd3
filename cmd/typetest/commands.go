package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typetest/internal/config"
	"github.com/verte-zerg/typetest/internal/engine"
	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/replay"
	"github.com/verte-zerg/typetest/internal/share"
	"github.com/verte-zerg/typetest/internal/stats"
	"github.com/verte-zerg/typetest/internal/statsui"
	"github.com/verte-zerg/typetest/internal/wordlist"
)

var (
	statsLang        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsChars       string
	statsInteractive bool

	lastJSON bool

	replayDuration int
	replayFinish   bool
	replayRealtime bool
	replayWords    string
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		logErrf("warning: %v\n", err)
	}
	return nil
}

func newLangsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List available word list languages",
		Args:  cobra.NoArgs,
		RunE:  runLangsCmd,
	}
}

func runLangsCmd(cmd *cobra.Command, _ []string) error {
	langs, err := wordlist.Langs(config.DefaultWordListDir())
	if err != nil {
		return err
	}
	for _, lang := range langs {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), lang); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsChars, "char", "", "characters for per-char curves, comma separated")
	cmd.Flags().BoolVarP(&statsInteractive, "interactive", "i", false, "browse stats in a TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	cfg := model.StatsConfig{
		Lang:        statsLang,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Chars:       statsChars,
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if statsInteractive {
		program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}
	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	return report.Render(cmd.OutOrStdout())
}

func newLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Print the last result",
		Args:  cobra.NoArgs,
		RunE:  runLastCmd,
	}
	cmd.Flags().BoolVar(&lastJSON, "json", false, "print raw JSON")
	return cmd
}

func loadLastResults() (model.Results, error) {
	st, closeStore, err := openStore()
	if err != nil {
		return model.Results{}, err
	}
	defer closeStore()
	res, ok, err := st.LastResults(context.Background())
	if err != nil {
		return model.Results{}, fmt.Errorf("failed to load last result: %w", err)
	}
	if !ok {
		return model.Results{}, fmt.Errorf("no results yet; run typetest first")
	}
	return res, nil
}

func runLastCmd(cmd *cobra.Command, _ []string) error {
	res, err := loadLastResults()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if lastJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return stats.RenderResults(out, res)
}

func newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share",
		Short: "Print a share link for the last result",
		Args:  cobra.NoArgs,
		RunE:  runShareCmd,
	}
}

func runShareCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	res, err := loadLastResults()
	if err != nil {
		return err
	}
	link, err := share.Link(fileCfg.ShareBaseURL(), res)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), link)
	return err
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <link-or-code>",
		Short: "Decode and print a shared result",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpenCmd,
	}
}

func runOpenCmd(cmd *cobra.Command, args []string) error {
	res, err := share.Parse(args[0])
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Shared result"); err != nil {
		return err
	}
	return stats.RenderResults(cmd.OutOrStdout(), res)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Run a recorded keystroke script through the engine",
		Long: "Run a recorded keystroke script through the engine and print the results.\n" +
			"Each line holds an offset in milliseconds and a key: \"0 t\", \"850 Space\", \"900 Backspace\".",
		Args: cobra.ExactArgs(1),
		RunE: runReplayCmd,
	}
	cmd.Flags().IntVar(&replayDuration, "duration", engine.DefaultDurationSeconds, "test length in seconds")
	cmd.Flags().BoolVar(&replayFinish, "finish", false, "end the test after the last key instead of running the timer out")
	cmd.Flags().BoolVar(&replayRealtime, "realtime", false, "replay against the wall clock")
	cmd.Flags().StringVar(&replayWords, "words", "", "target words, space separated (default: built-in list in order)")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	if replayDuration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer closeQuietly(f)
	events, err := replay.Parse(f)
	if err != nil {
		return err
	}

	words := strings.Fields(replayWords)
	if len(words) == 0 {
		if words, err = wordlist.Embedded(defaultLang); err != nil {
			return err
		}
	}
	src, err := generator.NewSequence(words)
	if err != nil {
		return err
	}
	cfg := engine.Config{Lang: defaultLang, DurationSeconds: replayDuration}

	var res model.Results
	if replayRealtime {
		eng := engine.New(cfg, src)
		res, err = replay.Realtime(cmd.Context(), eng, events, replayFinish)
		if err != nil {
			return err
		}
	} else {
		clock := replay.NewClock(time.Now())
		eng := engine.New(cfg, src, engine.WithClock(clock.Now))
		res = replay.Simulate(eng, clock, events, replayFinish)
	}
	return stats.RenderResults(cmd.OutOrStdout(), res)
}
