// Package main provides the CLI entrypoint for keymood.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/keymood/internal/analysis"
	"github.com/verte-zerg/keymood/internal/classifier"
	"github.com/verte-zerg/keymood/internal/config"
	"github.com/verte-zerg/keymood/internal/features"
	"github.com/verte-zerg/keymood/internal/generator"
	"github.com/verte-zerg/keymood/internal/logging"
	"github.com/verte-zerg/keymood/internal/model"
	"github.com/verte-zerg/keymood/internal/recorder"
	"github.com/verte-zerg/keymood/internal/server"
	"github.com/verte-zerg/keymood/internal/stats"
	"github.com/verte-zerg/keymood/internal/store"
	"github.com/verte-zerg/keymood/internal/tui"
)

const (
	defaultEndpoint  = "http://localhost:5000"
	defaultTimeout   = 10 * time.Second
	defaultListen    = ":5000"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultSimWords  = 20
	defaultSimSeed   = 1
	defaultProfile   = "steady"
	defaultLast      = 20
	listenEnvVar     = "KEYMOOD_LISTEN"
	shutdownTimeout  = 5 * time.Second
)

var (
	classifierEndpoint string
	classifierTimeout  time.Duration
	historyEnabled     bool

	serveListen    string
	serveLogLevel  string
	serveLogFormat string

	analyzeEvents   string
	analyzeText     string
	analyzeClassify bool

	simulateProfile  string
	simulateWords    int
	simulateSeed     uint64
	simulateClassify bool

	historyLast int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keymood",
		Short:         "Typing-dynamics emotion analysis",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTypingCmd,
	}

	addClassifierFlags(rootCmd)
	rootCmd.Flags().BoolVar(&historyEnabled, "save", false, "store each analysis in the history database")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func addClassifierFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&classifierEndpoint, "endpoint", defaultEndpoint, "classifier base URL")
	cmd.Flags().DurationVar(&classifierTimeout, "timeout", defaultTimeout, "classifier request timeout")
}

func loadClassifierConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.ClassifierConfig, error) {
	applyStringConfig(cmd, "endpoint", &classifierEndpoint, fileCfg.Classifier.Endpoint)
	if err := applyDurationConfig(cmd, "timeout", &classifierTimeout, fileCfg.Classifier.Timeout); err != nil {
		return model.ClassifierConfig{}, err
	}
	if classifierTimeout <= 0 {
		return model.ClassifierConfig{}, fmt.Errorf("--timeout must be > 0")
	}
	return model.ClassifierConfig{Endpoint: classifierEndpoint, Timeout: classifierTimeout}, nil
}

func runTypingCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	clientCfg, err := loadClassifierConfig(cmd, fileCfg)
	if err != nil {
		return err
	}
	applyBoolConfig(cmd, "save", &historyEnabled, fileCfg.History.Enabled)

	client, err := classifier.NewClient(clientCfg)
	if err != nil {
		return fmt.Errorf("failed to create classifier client: %w", err)
	}

	var st *store.Store
	if historyEnabled {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	rec := recorder.New()
	m := tui.NewModel(rec, analysis.New(rec, client), st)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference classifier service",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveListen, "listen", defaultListen, "listen address")
	cmd.Flags().StringVar(&serveLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&serveLogFormat, "log-format", defaultLogFormat, "log format (text, json)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "listen", &serveListen, fileCfg.Server.Listen)
	applyStringConfig(cmd, "log-level", &serveLogLevel, fileCfg.Server.LogLevel)
	applyStringConfig(cmd, "log-format", &serveLogFormat, fileCfg.Server.LogFormat)
	if v, ok := os.LookupEnv(listenEnvVar); ok && !cmd.Flags().Changed("listen") {
		serveListen = v
	}

	logger, err := logging.New(logging.Options{Level: serveLogLevel, Format: serveLogFormat})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              serveListen,
		Handler:           server.NewRouter(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("classifier service starting", "addr", serveListen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("classifier service stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Extract features from a recorded event log",
		Args:  cobra.NoArgs,
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().StringVar(&analyzeEvents, "events", "", "JSON Lines event log")
	cmd.Flags().StringVar(&analyzeText, "text", "", "text entered during the session")
	cmd.Flags().BoolVar(&analyzeClassify, "classify", false, "send features to the classifier")
	addClassifierFlags(cmd)
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	if analyzeEvents == "" {
		return fmt.Errorf("--events is required")
	}
	events, err := recorder.LoadEvents(analyzeEvents)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	rec := recorder.New()
	for _, ev := range events {
		rec.Record(ev)
	}
	return analyzeAndPrint(cmd, rec, analyzeText, analyzeClassify)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Analyze a synthetic typing session",
		Args:  cobra.NoArgs,
		RunE:  runSimulateCmd,
	}
	cmd.Flags().StringVar(&simulateProfile, "profile", defaultProfile,
		fmt.Sprintf("typist profile (%s)", strings.Join(generator.ProfileNames(), ", ")))
	cmd.Flags().IntVar(&simulateWords, "words", defaultSimWords, "words to type")
	cmd.Flags().Uint64Var(&simulateSeed, "seed", defaultSimSeed, "random seed")
	cmd.Flags().BoolVar(&simulateClassify, "classify", false, "send features to the classifier")
	addClassifierFlags(cmd)
	return cmd
}

func runSimulateCmd(cmd *cobra.Command, _ []string) error {
	if simulateWords <= 0 {
		return fmt.Errorf("--words must be > 0")
	}
	profile, err := generator.LookupProfile(simulateProfile)
	if err != nil {
		return err
	}
	session := generator.New(simulateSeed).Generate(profile, simulateWords)
	rec := recorder.New()
	for _, ev := range session.Events {
		rec.Record(ev)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Text: %s\n\n", session.Text); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return analyzeAndPrint(cmd, rec, session.Text, simulateClassify)
}

func analyzeAndPrint(cmd *cobra.Command, rec *recorder.Recorder, text string, classify bool) error {
	var predictor analysis.Predictor
	if classify {
		fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		clientCfg, err := loadClassifierConfig(cmd, fileCfg)
		if err != nil {
			return err
		}
		client, err := classifier.NewClient(clientCfg)
		if err != nil {
			return fmt.Errorf("failed to create classifier client: %w", err)
		}
		predictor = client
	}

	analyzer := analysis.New(rec, predictor)
	req, err := analyzer.Prepare(text)
	if err != nil {
		if errors.Is(err, features.ErrEmptySession) {
			return fmt.Errorf("event log is empty: nothing to analyze")
		}
		return fmt.Errorf("failed to extract features: %w", err)
	}
	res := analyzer.Run(cmd.Context(), req)
	if res.Err != nil {
		logErrf("Error while contacting server: %v\n", res.Err)
	}
	if err := stats.RenderFeatures(cmd.OutOrStdout(), req.Features, res.Prediction); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analyses",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultLast, "number of recent analyses (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	records, err := st.ListAnalyses(cmd.Context(), historyLast)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}
	return stats.RenderHistory(cmd.OutOrStdout(), records)
}

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
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
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
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	parsed, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = parsed
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keymood configuration
# Uncomment a value to enable it. CLI flags override config values.

[classifier]
# endpoint = %q   # Classifier base URL; features are posted to <endpoint>/predict
# timeout = %q              # Request timeout

[server]
# listen = %q               # Address for "keymood serve" (%s overrides)
# log-level = %q
# log-format = %q

[history]
# enabled = false              # Store each analysis (features and label only)
`,
		defaultEndpoint,
		defaultTimeout.String(),
		defaultListen,
		listenEnvVar,
		defaultLogLevel,
		defaultLogFormat,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
