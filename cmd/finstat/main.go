package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"finstat/pkg/core/config"
	"finstat/pkg/core/market"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/store"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"
)

var configPath = flag.String("config", "", "Path to the YAML config file (defaults to "+config.DefaultPath+" when present)")
var dataDir = flag.String("data-dir", "", "Data root holding <TICKER>/<timestamp>/ snapshots. Overrides config and DATA_DIR.")

func main() {
	godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// app holds what every command needs.
type app struct {
	cfg *config.Config
	svc *pipeline.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	config.SetupLogging(cfg.Log, os.Stderr)

	aliases := statements.DefaultAliases
	if cfg.AliasesFile != "" {
		extra, err := statements.LoadAliasOverrides(cfg.AliasesFile)
		if err != nil {
			return nil, err
		}
		aliases = aliases.Extend(extra)
	}

	opts := []market.ClientOption{
		market.WithTimeout(cfg.Market.Timeout),
		market.WithRateLimit(cfg.Market.RateLimit),
	}
	if cfg.Market.BaseURL != "" {
		opts = append(opts, market.WithBaseURL(cfg.Market.BaseURL))
	}
	if cfg.Market.PageURL != "" {
		opts = append(opts, market.WithPageURL(cfg.Market.PageURL))
	}
	provider := market.NewYahooClient(opts...)

	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			log.Warn().Err(err).Msg("[CLI] database unavailable, recording runs to files")
		}
	}
	runsDir := cfg.RunsDir
	if runsDir == "" {
		runsDir = filepath.Join(cfg.DataDir, ".runs")
	}
	repo := store.NewValuationRepo(store.GetPool(), runsDir)

	return &app{cfg: cfg, svc: pipeline.NewService(cfg.DataDir, aliases, provider, repo)}, nil
}

// printJSON writes v to stdout, indented.
func printJSON(v interface{}) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

// splitList splits a comma separated flag value.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
