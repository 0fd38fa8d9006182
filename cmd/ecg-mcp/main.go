package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/ecg-tools-mcp/internal/config"
	"github.com/ironsheep/ecg-tools-mcp/internal/ocr"
	"github.com/ironsheep/ecg-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("ecg-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			if ocr.Available {
				fmt.Printf("  Tesseract:  %s\n", ocr.Version())
			} else {
				fmt.Println("  Tesseract:  not compiled in")
			}
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--print-config":
			if err := printConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "ecg-mcp: %v\n", err)
				os.Exit(1)
			}
			return
		default:
			fmt.Fprintf(os.Stderr, "ecg-mcp: unknown option %s (see --help)\n", os.Args[1])
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ecg-mcp: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for the MCP protocol.
	logger := newLogger(cfg.Log, os.Stderr)
	defer logger.Sync()

	logger.Debug("starting ECG MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("layout", cfg.Extract.Layout),
		zap.Bool("ocr", ocr.Available))

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := srv.Run(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// printConfig writes the effective configuration as YAML. An unreadable or
// invalid configuration prints the defaults after reporting why.
func printConfig() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ecg-mcp: %v; printing defaults\n", err)
		return config.WriteDefault(os.Stdout)
	}
	return config.Write(os.Stdout, cfg)
}

func printHelp() {
	fmt.Println("ecg-mcp - MCP server for digitizing ECG strips")
	fmt.Println()
	fmt.Println("Usage: ecg-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println("  --print-config   Print the effective configuration as YAML")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  ./%s.yaml, or the file named by %s\n", config.DefaultFileName, config.EnvConfigFile)
	fmt.Printf("  %s_<SECTION>_<KEY> overrides any setting, e.g.\n", config.EnvPrefix)
	fmt.Printf("  %s_LOG_LEVEL=debug            Enable debug logging\n", config.EnvPrefix)
	fmt.Printf("  %s_EXTRACT_LAYOUT=3x4         Lead layout\n", config.EnvPrefix)
	fmt.Printf("  %s_DIAGNOSIS_CRITERION=a      STEMI criterion preset\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
