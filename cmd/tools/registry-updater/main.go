// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"musikmatch/internal/feed"
	"musikmatch/pkg/registry"
)

var registryPath string

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)

	exportCmd.StringVar(&registryPath, "path", "configs/feed-registry.json", "Path to write the registry file")
	validateCmd.StringVar(&registryPath, "path", "configs/feed-registry.json", "Path to registry file")
	showCmd.StringVar(&registryPath, "path", "", "Path to registry file (built-in when empty)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		if err := exportRegistry(); err != nil {
			fmt.Printf("Error exporting registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported built-in registry to %s\n", registryPath)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "show":
		showCmd.Parse(os.Args[2:])
		if err := showRegistry(); err != nil {
			fmt.Printf("Error reading registry: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

// exportRegistry writes the built-in schemas to a file, the starting point
// for deployments that override row schemas per environment.
func exportRegistry() error {
	reg := registry.Default()
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

// validateRegistry checks a registry file the same way the daemon will at
// startup: every required collection present, every schema compilable.
func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(reg.Tables) == 0 {
		return fmt.Errorf("registry contains no tables")
	}

	seen := make(map[string]bool)
	for _, table := range reg.Tables {
		if table.Table == "" {
			return fmt.Errorf("table entry missing name")
		}
		if seen[table.Table] {
			return fmt.Errorf("duplicate table: %s", table.Table)
		}
		seen[table.Table] = true

		if len(table.RowSchema) == 0 {
			return fmt.Errorf("table %s has no row schema", table.Table)
		}
	}

	required := []string{
		feed.TableProfiles,
		feed.TableGigs,
		feed.TableApplications,
		feed.TableMessages,
	}
	for _, table := range required {
		if !seen[table] {
			return fmt.Errorf("missing required table: %s", table)
		}
	}

	if _, err := feed.NewValidator(reg); err != nil {
		return fmt.Errorf("schema compilation failed: %w", err)
	}

	fmt.Printf("Registry validation passed. Found %d tables.\n", len(reg.Tables))
	return nil
}

func showRegistry() error {
	reg := registry.Default()
	if registryPath != "" {
		var err error
		reg, err = registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
	}

	fmt.Printf("Registry version %s (updated %s)\n", reg.Version, reg.LastUpdated)
	for _, table := range reg.Tables {
		fmt.Printf("  %s (%d schema keys)\n", table.Table, len(table.RowSchema))
	}
	return nil
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.SchemaRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  export   Write the built-in feed schema registry to a file
  validate Validate a registry file the way the daemon does at startup
  show     List the tables in a registry file (or the built-in one)
  help     Show this help message

Examples:
  registry-updater export -path configs/feed-registry.json
  registry-updater validate -path configs/feed-registry.json
  registry-updater show

Use 'registry-updater <command> -h' for more information about a command.
`)
}
