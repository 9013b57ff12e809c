package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dreamops/internal/calibration"
	"dreamops/internal/config"
	"dreamops/internal/probe"
	"dreamops/internal/provision"
	logx "dreamops/pkg/logx"
)

const usage = `usage: dreamops <command> [flags]

commands:
  healthcheck <service>   exit 0 when the service is alive, 1 otherwise
  install                 install the nightly calibration timer (root)
  status                  show the last calibration result

run 'dreamops <command> -h' for command flags
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	switch args[0] {
	case "healthcheck":
		return runHealthcheck(ctx, args[1:])
	case "install":
		return runInstall(ctx, args[1:])
	case "status":
		return runStatus(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load(config.DefaultPath, false)
	}
	return config.Load(path, true)
}

// runHealthcheck keeps the probe's two-valued contract: exit 0 means
// alive, anything else (including setup failures) collapses into 1.
func runHealthcheck(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	var (
		cfgPath = fs.String("config", "", "path to dreamops config")
		port    = fs.Int("port", 0, "dashboard health port override")
		timeout = fs.Duration("timeout", 0, "HTTP check timeout override")
		verbose = fs.Bool("verbose", false, "debug logging to stderr")
	)
	if err := fs.Parse(args); err != nil {
		// A help request is a usage outcome, not a DEAD verdict.
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dreamops healthcheck <service>")
		return 1
	}
	service := fs.Arg(0)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	log := logx.Nop()
	if *verbose {
		log = logx.NewConsole("debug")
	}

	if *port == 0 {
		*port = cfg.Probe.DashboardPort
	}
	if *timeout == 0 {
		d, err := cfg.ProbeTimeout()
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			return 1
		}
		*timeout = d
	}

	p := probe.Default(log, *port, *timeout)
	if p.Alive(ctx, service) {
		return 0
	}
	return 1
}

func runInstall(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	var (
		cfgPath    = fs.String("config", "", "path to dreamops config")
		dir        = fs.String("dir", "", "fleet working directory (required)")
		symbols    = fs.String("symbols", "", "comma-separated symbol universe")
		days       = fs.Int("days", 0, "trailing days to sync")
		minWinRate = fs.Float64("min-win-rate", -1, "minimum acceptable win rate")
		minTrades  = fs.Int("min-trades", 0, "minimum trades per symbol")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	defer log.Close()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "fatal: -dir is required")
		return 1
	}

	spec := jobSpec(cfg, *dir, *symbols, *days, *minWinRate, *minTrades)

	ins := provision.NewInstaller(provision.OSHost{}, log, os.Stdin, os.Stdout)
	if p := cfg.Install.SecretPath; p != "" {
		ins.SecretPath = p
		spec.SecretPath = p
	}
	if p := cfg.Install.ServicePath; p != "" {
		ins.ServicePath = p
	}
	if p := cfg.Install.TimerPath; p != "" {
		ins.TimerPath = p
	}

	if err := ins.Run(ctx, spec); err != nil {
		if errors.Is(err, provision.ErrNotRoot) {
			fmt.Fprintln(os.Stderr, "fatal: dreamops install must run as root")
			return 1
		}
		log.Error("install failed", logx.Err(err))
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	return 0
}

// jobSpec layers flag overrides over config overrides over defaults.
func jobSpec(cfg *config.Config, dir, symbols string, days int, minWinRate float64, minTrades int) provision.JobSpec {
	spec := provision.DefaultJobSpec(dir)

	if len(cfg.Install.Symbols) > 0 {
		spec.Symbols = cfg.Install.Symbols
	}
	if cfg.Install.LookbackDays > 0 {
		spec.LookbackDays = cfg.Install.LookbackDays
	}
	if cfg.Install.MinWinRate > 0 {
		spec.MinWinRate = cfg.Install.MinWinRate
	}
	if cfg.Install.MinTrades > 0 {
		spec.MinTrades = cfg.Install.MinTrades
	}

	if symbols != "" {
		var list []string
		for _, s := range strings.Split(symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		if len(list) > 0 {
			spec.Symbols = list
		}
	}
	if days > 0 {
		spec.LookbackDays = days
	}
	if minWinRate >= 0 {
		spec.MinWinRate = minWinRate
	}
	if minTrades > 0 {
		spec.MinTrades = minTrades
	}
	return spec
}

func runStatus(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var (
		cfgPath  = fs.String("config", "", "path to dreamops config")
		artifact = fs.String("artifact", "", "calibration artifact path override")
		watch    = fs.Bool("watch", false, "keep watching the artifact for changes")
		history  = fs.String("history", "", "record/read snapshots in this sqlite db")
		last     = fs.Int("last", 0, "list the N most recent recorded snapshots")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	path := cfg.Status.Artifact
	if *artifact != "" {
		path = *artifact
	}
	historyPath := cfg.Status.History
	if *history != "" {
		historyPath = *history
	}

	var hist *calibration.History
	if historyPath != "" {
		hist, err = calibration.OpenHistory(historyPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			return 1
		}
		defer hist.Close()
	}

	if *last > 0 {
		if hist == nil {
			fmt.Fprintln(os.Stderr, "fatal: -last requires -history (or status.history in config)")
			return 1
		}
		return printRecent(ctx, hist, *last)
	}

	// One Load per change: the projection and the history snapshot
	// must observe the same artifact contents.
	show := func() {
		a, err := calibration.Load(path)
		if rerr := calibration.Report(os.Stdout, a, err); rerr != nil {
			fmt.Fprintln(os.Stderr, "error:", rerr)
			return
		}
		if hist != nil && err == nil {
			if aerr := hist.Append(ctx, a); aerr != nil {
				fmt.Fprintln(os.Stderr, "error:", aerr)
			}
		}
	}
	show()

	if !*watch {
		return 0
	}

	log := logx.NewConsole(cfg.Logging.Level)
	w := calibration.NewWatcher(path, log, show)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	return 0
}

func printRecent(ctx context.Context, hist *calibration.History, n int) int {
	snaps, err := hist.Recent(ctx, n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	if len(snaps) == 0 {
		fmt.Println("no calibration history")
		return 0
	}
	for _, s := range snaps {
		fmt.Printf("%s  generated_at=%s global=%s global_params=%s\n",
			s.ObservedAt.Format(time.RFC3339), s.GeneratedAt, s.Global, s.GlobalParams)
	}
	return 0
}
