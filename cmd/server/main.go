package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"pubsub-core/internal/app/server"
	"pubsub-core/internal/config/loader"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/version"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file (defaults and PUBSUB_* env when empty)")
		showVersion = flag.Bool("version", false, "Show version information")
		noBanner    = flag.Bool("no-banner", false, "Do not print the startup banner")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "PubSub Core Server")
		fmt.Fprintln(os.Stderr, "Usage: server [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  server                         # defaults, listen on localhost:5000")
		fmt.Fprintln(os.Stderr, "  server -config ./config.yaml")
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Describe("pubsub-server"))
		return
	}

	path := *configPath
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			corelog.Fatalf("Failed to resolve config path: %v", err)
		}
		path = abs
	}

	cfg, err := loader.LoadServer(path)
	if err != nil {
		corelog.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	srv, err := server.NewServerBuilder(cfg).WithDefaults().Build(ctx)
	if err != nil {
		corelog.Fatalf("Failed to build server: %v", err)
	}

	if !*noBanner {
		srv.DisplayStartupBanner(path)
	}

	if err := srv.Run(ctx); err != nil {
		corelog.Fatalf("Server exited with error: %v", err)
	}
}
