package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dailyaf/vaultcap/internal/config"
	"github.com/dailyaf/vaultcap/internal/mcp"
	"github.com/dailyaf/vaultcap/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// vaultDirEnv overrides vault_dir and the directory the vault config is searched from.
const vaultDirEnv = "VAULTCAP_VAULT_DIR"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"init": true, "catalog": true, "refresh": true,
	"install": true, "update": true, "remove": true,
	"status": true, "outdated": true, "modules": true,
	"activities": true, "history": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                 _ _
 __ ____ _ _  _| | |_ __ __ _ _ __
 \ V / _' | || | |  _/ _/ _' | '_ \
  \_/\__,_|\_,_|_|\__\__\__,_| .__/
                             |_|

  Capsule installer for your notes vault

  Usage: vaultcap <command> [options]
         vaultcap --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the vault
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger := log.New(os.Stderr, "[capsules] ", log.LstdFlags)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, config.DirName)

	startDir := os.Getenv(vaultDirEnv)
	if startDir == "" {
		if startDir, err = os.Getwd(); err != nil {
			fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadWithRepo(baseDir, startDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if dir := os.Getenv(vaultDirEnv); dir != "" {
		cfg.VaultDir = dir
	}

	env, err := ops.Open(cfg, baseDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open vault: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		env.Progress = logProgress(logger)
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			env.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'vaultcap --help' for usage.\n")
		env.Close()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		env.Close()
		os.Exit(1)
	}
}

// logProgress writes intermediate progress lines to logger. Final states
// are left to the command's JSON output.
func logProgress(logger *log.Logger) ops.ProgressFunc {
	return func(ev ops.Event) {
		if ev.Status.Done() {
			return
		}
		logger.Printf("%s: %s", ev.CapsuleID, ev.Status.Message)
	}
}
