// Package main provides the nfs-watcher CLI application.
//
// nfs-watcher watches a directory tree (typically an NFS or SMB mount) and
// publishes one "Event: <path>" message per changed file to a RabbitMQ queue.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(args []string, out io.Writer) error {
	// Define global flags.
	fs := flag.NewFlagSet("nfs-watcher", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "show version information")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(out, "nfs-watcher %s\n", version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return showUsage(out)
	}

	command := rest[0]

	switch command {
	case "run":
		return runRunCommand(*configPath, rest[1:], out)
	case "check":
		return runCheckCommand(*configPath, rest[1:], out)
	case "config":
		return runConfigCommand(*configPath, rest[1:], out)
	case "version":
		fmt.Fprintf(out, "nfs-watcher %s\n", version)
		return nil
	case "help":
		return showUsage(out)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// parseFlags parses args, treating -h as a successful no-op.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// runRunCommand runs the run command.
func runRunCommand(configPath string, args []string, out io.Writer) error {
	cmd, err := parseRunCommand(configPath, args)
	if err != nil {
		return err
	}
	cmd.out = out
	return cmd.Execute()
}

// parseRunCommand parses run-specific flags.
func parseRunCommand(configPath string, args []string) (*runCommand, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	root := fs.String("root", "", "directory to watch (overrides config)")
	dryRun := fs.Bool("dry-run", false, "log messages instead of publishing them")
	status := fs.Duration("status", 0, "print status every interval (e.g., 30s); 0 disables")
	format := fs.String("format", "simple", "status output format (table, json, simple)")

	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	if _, err := displayFormat(*format); err != nil {
		return nil, err
	}

	return &runCommand{
		configPath: configPath,
		root:       *root,
		dryRun:     *dryRun,
		status:     *status,
		format:     *format,
	}, nil
}

// runCheckCommand runs the check command.
func runCheckCommand(configPath string, args []string, out io.Writer) error {
	cmd, err := parseCheckCommand(configPath, args)
	if err != nil {
		return err
	}
	cmd.out = out
	return cmd.Execute()
}

// parseCheckCommand parses check-specific flags.
func parseCheckCommand(configPath string, args []string) (*checkCommand, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")

	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	if _, err := displayFormat(*format); err != nil {
		return nil, err
	}

	return &checkCommand{
		configPath: configPath,
		format:     *format,
		compact:    *compact,
		paths:      fs.Args(),
	}, nil
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string, out io.Writer) error {
	cmd := &configCommand{
		configPath: configPath,
		out:        out,
	}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage(out io.Writer) error {
	usage := `nfs-watcher - publish file changes on a shared directory to RabbitMQ

Usage:
  nfs-watcher [flags] <command> [command flags]

Commands:
  run         Watch the configured directory and publish changes
  check       Show whether paths would be published or ignored
  config      Configuration management (show, path, default)
  version     Show version information
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Run Command Flags:
  -root       Directory to watch (overrides config)
  -dry-run    Log messages instead of publishing them
  -status     Print status every interval (e.g., 30s)
  -format     Status output format (table, json, simple)

Check Command Flags:
  -format     Output format (table, json, simple)
  -compact    Compact output

Environment:
  NFS_WATCHER_CONFIG            Configuration file path
  NFS_WATCHER_ROOT              Directory to watch
  NFS_WATCHER_IGNORE_PATTERNS   Comma-separated ignore patterns
  NFS_WATCHER_AMQP_URL          Broker URL
  NFS_WATCHER_QUEUE             Broker queue
  NFS_WATCHER_LOG_LEVEL         Log level

Examples:
  # Watch a mount and publish to the configured queue
  nfs-watcher run -root /mnt/share

  # Try the configuration without a broker
  nfs-watcher run -root /mnt/share -dry-run

  # Print status every 30 seconds
  nfs-watcher run -status 30s -format table

  # Check which files would be ignored
  nfs-watcher check '~$report.docx' report.docx .DS_Store

  # Show effective configuration
  nfs-watcher config show

Version: %s
`

	_, err := fmt.Fprintf(out, usage, version)
	return err
}
