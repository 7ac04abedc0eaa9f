package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redactedValue = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration that results from merging the --config files,
QAHUB_ environment overrides and built-in defaults, as YAML. Secrets are redacted.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	redacted := *cfg
	if redacted.Database.Postgres.Password != "" {
		redacted.Database.Postgres.Password = redactedValue
	}

	if redacted.Archive.S3.SecretAccessKey != "" {
		redacted.Archive.S3.SecretAccessKey = redactedValue
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)

	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return enc.Close()
}
