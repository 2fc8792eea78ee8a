// Package main is the entrypoint for the pathproxy gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/vivars7/pathproxy/internal/config"
	"github.com/vivars7/pathproxy/internal/router"
	"github.com/vivars7/pathproxy/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// startable is satisfied by *server.Server.
type startable interface {
	Start(ctx context.Context) error
}

// serverFactory creates a startable server from config. Tests inject failing
// factories to cover error paths.
type serverFactory func(cfg *config.Config, configPath, version string) (startable, error)

// defaultServerFactory is the production factory that delegates to server.New.
func defaultServerFactory(cfg *config.Config, configPath, version string) (startable, error) {
	return server.New(cfg, version, server.WithConfigPath(configPath))
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Global flags
	fset := flag.NewFlagSet("pathproxy", flag.ContinueOnError)
	configPath := fset.String("config", "pathproxy.yaml", "path to configuration file")
	showVersion := fset.Bool("version", false, "print version and exit")

	// Parse only known flags before the subcommand
	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printUsage()
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *showVersion {
		fmt.Printf("pathproxy %s\n", Version)
		return 0
	}

	// Bootstrap logger until the configured one takes over in serve
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Determine subcommand
	subcmd := "serve"
	remaining := fset.Args()
	if len(remaining) > 0 {
		subcmd = remaining[0]
		remaining = remaining[1:]
	}

	switch subcmd {
	case "serve":
		return cmdServe(*configPath, defaultServerFactory)
	case "validate":
		return cmdValidate(*configPath)
	case "init":
		return cmdInit(remaining)
	case "routes":
		return cmdRoutes(*configPath, remaining, os.Stdout)
	case "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pathproxy %s - path-based forwarding gateway

Usage:
  pathproxy [flags] <command>

Commands:
  serve      Start the gateway server (default)
  validate   Validate configuration file
  init       Generate a new pathproxy.yaml
  routes     Print the route table, or which route a path matches
  help       Show this help message

Flags:
  --config string   Path to configuration file (default "pathproxy.yaml")
  --version         Print version and exit

Examples:
  pathproxy serve --config pathproxy.yaml
  pathproxy validate --config pathproxy.yaml
  pathproxy init --profile prod --output /etc/pathproxy.yaml
  pathproxy routes --match /api/users
`, Version)
}

// cmdServe starts the gateway HTTP server with graceful shutdown.
func cmdServe(configPath string, newServer serverFactory) int {
	logger := slog.Default()
	logger.Info("starting pathproxy",
		"version", Version,
		"config", configPath,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("configuration error", "error", err)
		return 1
	}

	srv, err := newServer(cfg, configPath, Version)
	if err != nil {
		logger.Error("server initialization error", "error", err)
		return 1
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}

	return 0
}

// cmdValidate loads and validates the configuration file.
func cmdValidate(configPath string) int {
	if _, err := config.Load(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println("config valid")
	return 0
}

// cmdInit generates a new pathproxy.yaml with the specified profile.
func cmdInit(args []string) int {
	fset := flag.NewFlagSet("init", flag.ContinueOnError)
	profile := fset.String("profile", "dev", "configuration profile (dev or prod)")
	outPath := fset.String("output", "pathproxy.yaml", "file to write")
	force := fset.Bool("force", false, "overwrite an existing file")

	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var profileYAML string
	switch *profile {
	case "dev":
		profileYAML = config.DevProfile()
	case "prod":
		profileYAML = config.ProdProfile()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown profile %q (use dev or prod)\n", *profile)
		return 1
	}

	if !*force {
		if _, err := os.Stat(*outPath); err == nil {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", *outPath)
			return 1
		} else if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := os.WriteFile(*outPath, []byte(profileYAML), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *outPath, err)
		return 1
	}

	fmt.Printf("Generated %s with profile %q\n", *outPath, *profile)
	return 0
}

// cmdRoutes prints the ordered route table. With --match it prints the route
// a path would be forwarded by, using the same first-match rule as serve.
func cmdRoutes(configPath string, args []string, out io.Writer) int {
	fset := flag.NewFlagSet("routes", flag.ContinueOnError)
	match := fset.String("match", "", "request path to resolve against the table")

	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	routes := make([]router.Route, len(cfg.Routes))
	for i, rt := range cfg.Routes {
		routes[i] = router.Route{Pattern: rt.Pattern, Target: rt.Target}
	}
	table, err := router.NewTable(routes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *match != "" {
		route, ok := table.Match(*match)
		if !ok {
			fmt.Fprintf(out, "%s: no match (passed to fallback)\n", *match)
			return 0
		}
		fmt.Fprintf(out, "%s: %s -> %s%s\n", *match, route.Pattern, route.Target, *match)
		return 0
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPATTERN\tTARGET")
	for i, route := range table.Routes() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, route.Pattern, route.Target)
	}
	tw.Flush()
	return 0
}
