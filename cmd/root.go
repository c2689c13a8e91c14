// Package cmd holds the ecoleta command line.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"ecoleta-cli/config"
	"ecoleta-cli/nav"
	"ecoleta-cli/service"
	"ecoleta-cli/store"
	"ecoleta-cli/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const appName = "ecoleta"

// BuildInfo is reported by the version command.
type BuildInfo struct {
	Version string
	Commit  string
}

var (
	configFile  string
	initialUF   string
	initialCity string

	cfg     config.Config
	logFile io.Closer
)

func Execute(info BuildInfo) error {
	return newRootCmd(info).Execute()
}

func newRootCmd(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Escolha UF e cidade para encontrar pontos de coleta",
		Long:          "Lists Brazilian states and cities from IBGE and hands the chosen pair to the Points screen.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			cfg = loaded
			return setupLogging(cmd, cfg.Log)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				_ = logFile.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelector(cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default <user config dir>/ecoleta-cli/config.toml)")
	root.PersistentFlags().String("api-base-url", "", "IBGE localidades base URL")
	root.PersistentFlags().Bool("cache", false, "cache IBGE lists on disk")
	root.PersistentFlags().String("log-file", "", "append logs to this file")
	root.PersistentFlags().Bool("debug", false, "log to stderr outside the TUI")
	root.Flags().StringVar(&initialUF, "uf", "", "preselect a state by sigla or name")
	root.Flags().StringVar(&initialCity, "city", "", "preselect a city once the state is loaded")
	root.Flags().String("route", "", "navigation destination (default Points)")

	root.AddCommand(ufsCmd(), citiesCmd(), versionCmd(info))
	return root
}

// setupLogging sends logs to the log file when one is set. Otherwise only
// subcommands may log to stderr, since the TUI owns the terminal.
func setupLogging(cmd *cobra.Command, logCfg config.LogConfig) error {
	if logCfg.File != "" {
		f, err := tea.LogToFile(logCfg.File, appName)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		return nil
	}
	if logCfg.Debug && cmd.HasParent() {
		log.SetOutput(cmd.ErrOrStderr())
		log.SetPrefix(appName + " ")
		return nil
	}
	log.SetOutput(io.Discard)
	return nil
}

func newClient() *service.Client {
	return service.NewClient(
		&http.Client{Timeout: cfg.API.Timeout},
		service.WithBaseURL(cfg.API.BaseURL),
		service.WithMaxAttempts(cfg.API.MaxAttempts),
	)
}

func newStore() (*store.Store, error) {
	if !cfg.Cache.Enabled && !cfg.History.Enabled {
		return nil, nil
	}
	return store.New(cfg.Cache.Dir, "", cfg.Cache.TTL)
}

func runSelector(out io.Writer) error {
	st, err := newStore()
	if err != nil {
		log.Printf("store unavailable: %v", err)
		st = nil
	}

	handoff := nav.NewHandoff()
	model := tui.New(tui.Options{
		Client:      newClient(),
		Navigator:   handoff,
		Route:       cfg.Nav.Route,
		Store:       st,
		Cache:       cfg.Cache.Enabled,
		History:     cfg.History.Enabled,
		Timeout:     cfg.API.Timeout,
		InitialUF:   initialUF,
		InitialCity: initialCity,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}

	transition, ok := handoff.Result()
	if !ok {
		return nil
	}
	return writeTransition(out, transition)
}

func writeTransition(out io.Writer, transition nav.Transition) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return enc.Encode(transition)
}

// Main runs the command line and exits with a non-zero status on failure.
func Main(info BuildInfo) {
	if err := Execute(info); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
