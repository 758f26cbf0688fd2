package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/0xmhha/nfs-watcher/pkg/config"
	"gopkg.in/yaml.v3"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
	out        io.Writer
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "show":
		return c.runShow(subargs)
	case "path":
		return c.runPath()
	case "default":
		return c.runDefault(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", subcommand)
	}
}

// runShow displays the effective configuration.
func (c *configCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	loader := config.NewLoader(c.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch *format {
	case "json":
		return c.showJSON(cfg)
	case "yaml":
		return c.showYAML(cfg, c.source(loader))
	default:
		return fmt.Errorf("unknown format: %s", *format)
	}
}

// showYAML displays configuration in YAML format.
func (c *configCommand) showYAML(cfg *config.Config, source string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(c.out, "# Effective Configuration")
	fmt.Fprintln(c.out, "# Source:", source)
	fmt.Fprintln(c.out)
	_, err = c.out.Write(data)
	return err
}

// showJSON displays configuration in JSON format.
func (c *configCommand) showJSON(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

// runPath shows the configuration file search order.
func (c *configCommand) runPath() error {
	paths := []string{
		"./config.yaml",
		config.DefaultConfigPath(),
		"/etc/nfs-watcher/config.yaml",
	}

	fmt.Fprintln(c.out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(c.out)

	if env := os.Getenv(config.EnvConfig); env != "" {
		fmt.Fprintf(c.out, "  %s=%s\n", config.EnvConfig, env)
	}
	for i, p := range paths {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(c.out, "  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Active configuration:", c.source(config.NewLoader(c.configPath)))
	return nil
}

// runDefault prints the default configuration, or writes it with -output.
func (c *configCommand) runDefault(args []string) error {
	fs := flag.NewFlagSet("config default", flag.ContinueOnError)
	output := fs.String("output", "", "write defaults to this path instead of stdout")
	force := fs.Bool("force", false, "overwrite an existing file")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg := config.Default()

	if *output == "" {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = c.out.Write(data)
		return err
	}

	if _, err := os.Stat(*output); err == nil && !*force {
		return fmt.Errorf("configuration file already exists at %s (use -force to overwrite)", *output)
	}

	if err := config.Save(cfg, *output); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Default configuration written to: %s\n", *output)
	return nil
}

// source describes where the effective configuration came from.
func (c *configCommand) source(loader config.Loader) string {
	if p := loader.Path(); p != "" {
		return p
	}
	return "defaults (no config file found)"
}

// showHelp displays help for config command.
func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  nfs-watcher config <subcommand> [flags]

Subcommands:
  show      Display effective configuration (file, environment, defaults)
  path      Show configuration file paths
  default   Print the default configuration

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Default Flags:
  -output   Write to a file instead of stdout
  -force    Overwrite an existing file

Examples:
  # Show effective configuration
  nfs-watcher config show

  # Show configuration in JSON format
  nfs-watcher config show -format json

  # Start a config file from the defaults
  nfs-watcher config default -output ~/.config/nfs-watcher/config.yaml
`
	_, err := fmt.Fprint(c.out, help)
	return err
}
