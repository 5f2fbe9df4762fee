package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MDU-PHL/who2tbp/internal/duckdb"
	"github.com/MDU-PHL/who2tbp/internal/output"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query --db <path> (--gene G | --token T | --status S)",
		Short: "Look up stored translations",
		Long:  "Look up translations stored by 'who2tbp convert --db'.",
		Example: `  who2tbp query --db who.duckdb --gene rpoB
  who2tbp query --db who.duckdb --token katG_S315T
  who2tbp query --db who.duckdb --status unrecognized`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, "db")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("db")
			if dbPath == "" {
				return newUsageError(cmd, "--db is required")
			}
			gene, _ := cmd.Flags().GetString("gene")
			token, _ := cmd.Flags().GetString("token")
			status, _ := cmd.Flags().GetString("status")
			return runQuery(dbPath, gene, token, status, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("db", "", "DuckDB database written by convert --db")
	cmd.Flags().String("gene", "", "Show translations for this gene")
	cmd.Flags().String("token", "", "Show translations of this variant token")
	cmd.Flags().String("status", "", "Show translations with this status (ok, unrecognized, malformed_residue, ambiguous_diff, error)")
	cmd.MarkFlagsMutuallyExclusive("gene", "token", "status")
	cmd.MarkFlagsOneRequired("gene", "token", "status")

	return cmd
}

func runQuery(dbPath, gene, token, status string, w io.Writer) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	var ts []duckdb.Translation
	switch {
	case token != "":
		ts, err = store.LookupToken(token)
	case gene != "":
		ts, err = store.SearchByGene(gene)
	default:
		ts, err = store.SearchByStatus(status)
	}
	if err != nil {
		return err
	}

	return writeTranslations(w, ts)
}

func writeTranslations(w io.Writer, ts []duckdb.Translation) error {
	sw := output.NewStoredWriter(w)
	if err := sw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, t := range ts {
		if err := sw.Write(t); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return sw.Flush()
}
