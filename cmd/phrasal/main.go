/*
Package main implements the prefix-constrained translation option server and
CLI [DBG] application.

Phrasal serves, for an interactive translation session, the candidate rules
that can continue a partially typed target prefix. Rules come from a
phrase-table lookup over the source sentence; prefix positions the table
leaves uncovered are filled with synthetic rules built from cooccurrence
counts in a background model and an optional online-adapted foreground
model, with a string-similarity fallback when no counts exist.

# Usage

Start the IPC server with a background model:

	phrasal -bg models/background.ptm

Add an adapted foreground model and enable debug logs:

	phrasal -bg models/background.ptm -fg session.ptm -d

Run in CLI mode for interactive testing:

	phrasal -bg models/background.ptm -c -limit 5

CLI mode reads lines of the form

	le chat dort ||| the cat

and prints the augmented rule grid for the pair.

# Configuration

Runtime configuration is managed through a TOML file created with defaults
when missing:

	[server]
	max_limit = 64
	max_source_len = 200
	max_prefix_len = 200

	[model]
	background_path = "models/background.ptm"
	max_phrase_len = 7

# IPC Protocol

Server mode communicates via MessagePack over stdin/stdout. Translation
requests are processed synchronously with microsecond timing included in
responses; see the server package for the message shapes.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Angi16/phrasal/internal/cli"
	"github.com/Angi16/phrasal/internal/utils"
	"github.com/Angi16/phrasal/pkg/config"
	"github.com/Angi16/phrasal/pkg/feat"
	"github.com/Angi16/phrasal/pkg/server"
	"github.com/Angi16/phrasal/pkg/tm"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0"
	AppName = "phrasal"
	gh      = "https://github.com/Angi16/phrasal"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, models and the scorer together and hands control to
// the server or the CLI loop.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	backgroundPath := flag.String("bg", defaultConfig.Model.BackgroundPath, "Background model file (.ptm)")
	foregroundPath := flag.String("fg", defaultConfig.Model.ForegroundPath, "Foreground (adapted) model file (.ptm), optional")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of candidates to print per position")
	phraseLen := flag.Int("phrase", defaultConfig.Model.MaxPhraseLen, "Maximum source phrase length for table lookup")
	configPath := flag.String("config", "", "Path to config.toml (default: user config dir)")

	flag.Parse()

	if *showVersion {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    false,
			ReportTimestamp: false,
			Prefix:          "",
		})

		styles := log.DefaultStyles()
		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		logger.SetStyles(styles)

		logger.Print("")
		logger.Print("[ Phrasal ] Rule grids for prefix-constrained translation")
		logger.Print("", "version", Version)
		logger.Print("use -h or --help to see available options")
		logger.Print("Github Repo", "gh", gh)

		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	resolvedConfigPath := *configPath
	if resolvedConfigPath == "" {
		var err error
		resolvedConfigPath, err = config.GetDefaultConfigPath()
		if err != nil {
			log.Warnf("Failed to determine config path: %v. Using built-in defaults...", err)
		}
	}
	appConfig := defaultConfig
	if resolvedConfigPath != "" {
		var err error
		appConfig, err = config.InitConfig(resolvedConfigPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(resolvedConfigPath))
	}
	if *phraseLen > 0 {
		appConfig.Model.MaxPhraseLen = *phraseLen
	}

	bgPath := utils.ResolveModelPath(*backgroundPath)
	background, table, err := tm.LoadModel(bgPath, appConfig.Model.MaxPhraseLen)
	if err != nil {
		log.Fatalf("Failed to load background model from %s: %v", bgPath, err)
	}
	log.Debugf("Background model loaded: %v", background.Stats())

	var foreground *tm.Model
	if *foregroundPath != "" {
		fgPath := utils.ResolveModelPath(*foregroundPath)
		var fgTable *tm.PhraseTable
		foreground, fgTable, err = tm.LoadModel(fgPath, appConfig.Model.MaxPhraseLen)
		if err != nil {
			log.Fatalf("Failed to load foreground model from %s: %v", fgPath, err)
		}
		if fgTable.Len() > 0 {
			log.Warnf("Foreground model carries %d phrases; only its counts are used", fgTable.Len())
		}
		log.Debugf("Foreground model loaded: %v", foreground.Stats())
	} else {
		log.Debug("No foreground model, running with background counts only")
	}

	scorer := feat.NewLexicalScorer()

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(background, foreground, table, scorer, *limit)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(background, foreground, table, scorer, appConfig)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
