// Command sesamestream is the demo/CLI harness for the SesameStream
// continuous-query engine: "serve" runs an HTTP + websocket push endpoint,
// "demo" walks through spec.md's S1-S6 scenarios in-process, and "ingest"
// loads an N-Triples file or stdin into a fresh index and prints what
// matched. Grounded on cmd/trigo/main.go's os.Args-switch structure.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	configPath, rest := extractConfigFlag(args)
	cfg, err := resolveConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sesamestream: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sesamestream: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch command {
	case "demo":
		runDemo(cfg, logger)
	case "ingest":
		path := ""
		if len(rest) > 0 {
			path = rest[0]
		}
		if err := runIngest(cfg, logger, path); err != nil {
			fmt.Fprintf(os.Stderr, "sesamestream: %v\n", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "sesamestream: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "sesamestream: unknown command %q\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: sesamestream <command> [-config path.yaml] [args]")
	fmt.Println("Commands:")
	fmt.Println("  demo            - walk through the S1-S6 scenarios against an in-process index")
	fmt.Println("  ingest [file]   - load N-Triples from a file (or stdin) into a fresh index")
	fmt.Println("  serve           - start the HTTP + websocket push demo server")
}

// extractConfigFlag pulls a leading/anywhere "-config path" or
// "-config=path" pair out of args, returning the path (empty if absent)
// and the remaining positional arguments.
func extractConfigFlag(args []string) (configPath string, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-config" || arg == "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case len(arg) > len("-config=") && arg[:len("-config=")] == "-config=":
			configPath = arg[len("-config="):]
		case len(arg) > len("--config=") && arg[:len("--config=")] == "--config=":
			configPath = arg[len("--config="):]
		default:
			rest = append(rest, arg)
		}
	}
	return configPath, rest
}

// resolveConfig loads the config at path, or returns the default
// configuration when path is empty.
func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
