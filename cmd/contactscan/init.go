package main

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/contactscan.yaml
var configTemplate embed.FS

const (
	// configFileName is the default configuration file name.
	configFileName = config.DefaultConfigFile

	templatePath = "templates/contactscan.yaml"
)

// errConfigExists is returned when init would overwrite a file without
// --force.
var errConfigExists = errors.New("configuration file already exists")

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new contactscan configuration file",
		Long: `Init writes a commented .contactscan configuration file holding the
default delays, retries, email prefixes and frontier keywords, plus
examples for per-site cookies, headers and skips.

Examples:
  # Create .contactscan in current directory
  contactscan init

  # Create config file at a specific path
  contactscan init -o ~/.config/contactscan/config.yaml

  # Print the template instead of writing it
  contactscan init --stdout

  # Force overwrite existing file
  contactscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().Bool("stdout", false,
		"Print the template to standard output")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	toStdout, err := cmd.Flags().GetBool("stdout")
	if err != nil {
		return err
	}
	if toStdout {
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate(outputPath, content, force); err != nil {
		return err
	}
	printNextSteps(cmd.OutOrStdout(), outputPath)
	return nil
}

// writeTemplate writes content to path, creating parent directories.
// An existing file is kept unless force is set.
func writeTemplate(path string, content []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use -f to overwrite)", errConfigExists, path)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

func printNextSteps(out io.Writer, path string) {
	fmt.Fprintf(out, "Created configuration file: %s\n", path)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Politeness delays and retries")
	fmt.Fprintln(out, "  - Business email prefixes and contact keywords")
	fmt.Fprintln(out, "  - Cookies, headers or skips for individual sites")
}
