package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/santiagomed/quill/config"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/fs"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
	"github.com/santiagomed/quill/server"
	"github.com/santiagomed/quill/utils"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// reportedError wraps an error the TUI has already shown to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

var rootCmd = &cobra.Command{
	Use:   "quill [topic]",
	Short: "Quill drafts long-form documents with AI, one step at a time",
	Long: `Quill is a CLI tool that walks you from a topic to a finished Markdown document:
pick an outline, refine each chapter's key points, let the model draft every chapter,
then review, edit and export the result.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWizard,
}

var wizardCmd = &cobra.Command{
	Use:   "wizard [topic]",
	Short: "Start the interactive drafting wizard",
	Args:  cobra.ArbitraryArgs,
	RunE:  runWizard,
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a document from a topic without interaction",
	RunE:  runDraft,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the drafting API over HTTP",
	RunE:  runServe,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the OpenAI-compatible provider presets",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(presetTable())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and test the provider connection",
	RunE:  runCheck,
}

type draftFlags struct {
	topic   string
	style   string
	outline int
	charts  map[string]string
	out     string
	bundle  bool
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a custom configuration file")

	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(checkCmd)

	draftCmd.Flags().StringP("topic", "t", "", "What the document is about")
	draftCmd.Flags().StringP("style", "s", "", "Optional style hint")
	draftCmd.Flags().IntP("outline", "o", 1, "Which of the three outlines to use (1-3)")
	draftCmd.Flags().StringToString("chart", nil, "Chart image for a chapter, as number=path or title=path (repeatable)")
	draftCmd.Flags().String("out", "", "Directory to write the document to (defaults to export_dir)")
	draftCmd.Flags().Bool("bundle", false, "Export a zip with the document and every chapter")
	draftCmd.MarkFlagRequired("topic")

	serveCmd.Flags().String("addr", "", "Address to listen on (defaults to server.addr)")
}

func parseDraftFlags(cmd *cobra.Command) (draftFlags, error) {
	topic, err := cmd.Flags().GetString("topic")
	if err != nil {
		return draftFlags{}, err
	}
	style, err := cmd.Flags().GetString("style")
	if err != nil {
		return draftFlags{}, err
	}
	outline, err := cmd.Flags().GetInt("outline")
	if err != nil {
		return draftFlags{}, err
	}
	charts, err := cmd.Flags().GetStringToString("chart")
	if err != nil {
		return draftFlags{}, err
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return draftFlags{}, err
	}
	bundle, err := cmd.Flags().GetBool("bundle")
	if err != nil {
		return draftFlags{}, err
	}

	if strings.TrimSpace(topic) == "" {
		return draftFlags{}, llm.ErrEmptyTopic
	}
	if outline < 1 || outline > llm.OutlineCount {
		return draftFlags{}, fmt.Errorf("--outline must be between 1 and %d", llm.OutlineCount)
	}

	return draftFlags{
		topic:   topic,
		style:   style,
		outline: outline,
		charts:  charts,
		out:     out,
		bundle:  bundle,
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newService wires the gateway client and the drafting service from cfg.
func newService(cfg *config.Config, l logger.Logger, opts ...llm.Option) *llm.Service {
	opts = append([]llm.Option{
		llm.WithLogger(l),
		llm.WithGeminiAPIKey(cfg.GeminiAPIKey),
	}, opts...)
	if cfg.TellmURL != "" {
		opts = append(opts, llm.WithCallLogger(llm.NewTellmCallLogger(cfg.TellmURL, "", l)))
	}
	return llm.NewService(llm.NewClient(opts...), l)
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.InitLogger(cfg.LogLevel)
	l := logger.GetLogger()
	l.Debug("Initializing quill wizard")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctrl := core.NewController(newService(cfg, l), cfg.ProviderConfig(), l.WithField("component", "wizard"))
	m := newWizardModel(ctx, ctrl, fs.NewOsFileSystem(), cfg.ExportDir, systemClipboard{}, cfg.RequestTimeout, l)
	if topic := utils.SanitizeInput(strings.Join(args, " ")); topic != "" {
		m.topic.SetValue(topic)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func runDraft(cmd *cobra.Command, args []string) error {
	flags, err := parseDraftFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.InitLogger(cfg.LogLevel)
	l := logger.GetLogger()
	l.Debug("Initializing quill draft")

	out := flags.out
	if out == "" {
		out = cfg.ExportDir
	}
	req := core.NewRequest(utils.SanitizeInput(flags.topic), utils.SanitizeInput(flags.style), flags.outline-1, out, flags.bundle, cfg.ProviderConfig())
	for k, v := range flags.charts {
		req.ChartImages[k] = v
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	files := fs.NewOsFileSystem()
	publisher := NewCliStepPublisher(l)
	engine := NewDraftEngine(publisher, newService(cfg, l), l, cfg.Workers, files, files)
	engine.Start(ctx)
	defer engine.Shutdown(shutdownTimeout)

	final, err := tea.NewProgram(newDraftModel(engine, publisher, req, cfg.RequestTimeout, l)).Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	cancel()
	if m, ok := final.(draftModel); ok {
		if err := m.Err(); err != nil {
			return reportedError{err}
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l := logger.New(os.Stdout, cfg.LogLevel).WithField("component", "server")

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	svc := newService(cfg, l, llm.WithObserver(server.ObserveLLMCall))
	router := server.NewRouter(svc, server.Options{
		Addr:           addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Defaults:       cfg.ProviderConfig(),
		Logger:         l,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, router, addr, shutdownTimeout, l)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pc := cfg.ProviderConfig()
	if err := pc.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	l := logger.New(os.Stderr, cfg.LogLevel)
	if err := newService(cfg, l).TestConnection(ctx, pc); err != nil {
		return fmt.Errorf("%s: %w", pc, err)
	}
	fmt.Printf("%s %s\n", okStyle.Render("✓"), pc)
	return nil
}

func presetTable() string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("202"))).
		Headers("PRESET", "BASE URL", "MODEL")
	for _, p := range llm.Presets() {
		t.Row(p.Name, p.BaseURL, p.Model)
	}
	return t.String()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Println(errorStyle.Render("Error: " + describeError(err)))
		}
		os.Exit(1)
	}
}
