package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bourgade-tui/config"
	"bourgade-tui/facts"
	"bourgade-tui/model"
	"bourgade-tui/tui"
)

// Version 构建时通过 -ldflags "-X main.Version=..." 设置
var Version = "dev"

var flags struct {
	volume    int
	streamURL string
	fps       int
	logFile   string
	debug     bool
}

var rootCmd = &cobra.Command{
	Use:     "bourgade-tui",
	Short:   "Écouter " + model.Station.Name + " dans le terminal",
	Long:    model.Station.Description,
	Version: Version,
	RunE:    runTUI,
}

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Afficher les anecdotes sur la station",
	RunE:  runFacts,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Gérer le fichier de configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Afficher l'emplacement du fichier de configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Écrire la configuration par défaut",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s existe déjà", path)
		}
		if err := config.Save(config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flags.volume, "volume", -1,
		"Initial volume (0-100), -1 means use config")
	rootCmd.PersistentFlags().StringVar(&flags.streamURL, "stream-url", "",
		"Override the stream URL")
	rootCmd.PersistentFlags().IntVar(&flags.fps, "fps", 0,
		"Spectrum frames per second (0 means use config)")
	rootCmd.PersistentFlags().StringVarP(&flags.logFile, "log", "l", "",
		"Write logs to this file instead of the configured one")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false,
		"Enable debug logging")

	configCmd.AddCommand(configPathCmd, configInitCmd)
	rootCmd.AddCommand(factsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 合并配置文件、环境变量和命令行参数
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("⚠ Configuration illisible, valeurs par défaut utilisées : %v\n", err)
	}

	if flags.volume >= 0 {
		cfg.Volume = config.ClampVolume(float64(flags.volume) / 100.0)
	}
	if flags.streamURL != "" {
		cfg.StreamURL = flags.streamURL
	}
	if flags.fps > 0 {
		cfg.FPS = min(flags.fps, 120)
	}
	if flags.logFile != "" {
		if p, err := homedir.Expand(flags.logFile); err == nil {
			cfg.LogFile = p
		} else {
			cfg.LogFile = flags.logFile
		}
	}
	return cfg
}

// setupLogging 日志写入文件，终端留给 TUI
func setupLogging(path string) io.Closer {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flags.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Logger = zerolog.Nop()
		return io.NopCloser(nil)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Logger = zerolog.Nop()
		return io.NopCloser(nil)
	}

	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logFile := setupLogging(cfg.LogFile)
	defer logFile.Close()

	log.Info().
		Str("version", Version).
		Str("stream", cfg.StreamURL).
		Int("fps", cfg.FPS).
		Msg("starting")

	if err := tui.Run(cfg); err != nil {
		log.Error().Err(err).Msg("tui exited")
		return fmt.Errorf("interface : %w", err)
	}
	return nil
}

func runFacts(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logFile := setupLogging(cfg.LogFile)
	defer logFile.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client := facts.NewClient(cfg.FactsURL, cfg.FactsAPIKey, cfg.FactsModel)
	out := cmd.OutOrStdout()
	for _, f := range client.Load(ctx) {
		fmt.Fprintf(out, "• %s\n  %s\n", f.Title, f.Content)
	}
	return nil
}
