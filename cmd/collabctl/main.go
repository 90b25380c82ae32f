package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"collaboratorium/internal/schema"
	"collaboratorium/internal/uiconfig"
)

var (
	schemaPath string
	configPath string
	outputFile string
)

var rootCmd = &cobra.Command{
	Use:   "collabctl",
	Short: "Offline tools for the schema compiler",
	Long:  `collabctl compiles a schema markup file into storage DDL, generates draft interface configs and lints configs against the schema without starting the server.`,
}

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print CREATE TABLE statements for the schema",
	RunE:  runDDL,
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate a draft interface config from the schema",
	RunE:  runDraft,
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check an interface config against the schema",
	RunE:  runLint,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "schema.dbml", "Path to schema markup file")
	draftCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	lintCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to interface config YAML")
	rootCmd.AddCommand(ddlCmd, draftCmd, lintCmd)
}

func loadSchema() (*schema.Schema, schema.ReferenceIndex, error) {
	sch, err := schema.Load(schemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load schema: %w", err)
	}
	idx, err := schema.BuildReferenceIndex(sch)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index references: %w", err)
	}
	return sch, idx, nil
}

func runDDL(cmd *cobra.Command, args []string) error {
	sch, _, err := loadSchema()
	if err != nil {
		return err
	}
	stmts, err := schema.GenerateDDL(sch)
	if err != nil {
		return fmt.Errorf("failed to generate DDL: %w", err)
	}
	for _, stmt := range stmts {
		fmt.Fprintln(cmd.OutOrStdout(), stmt+";")
	}
	return nil
}

func runDraft(cmd *cobra.Command, args []string) error {
	sch, idx, err := loadSchema()
	if err != nil {
		return err
	}
	draft := uiconfig.DraftConfig(sch, idx)

	out, err := yaml.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to render draft: %w", err)
	}

	writer := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
			}
		}()
		writer = f
	}
	_, err = writer.Write(out)
	return err
}

func runLint(cmd *cobra.Command, args []string) error {
	sch, _, err := loadSchema()
	if err != nil {
		return err
	}

	// Черновики линтуются как есть, поэтому грузим без серверной проверки Draft
	cfg, err := uiconfig.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Check(sch); err != nil {
		return fmt.Errorf("config check failed: %w", err)
	}

	issues := cfg.Lint()
	if len(issues) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "config is clean")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintln(cmd.OutOrStdout(), issue.String())
	}
	return fmt.Errorf("%d issue(s) found", len(issues))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
