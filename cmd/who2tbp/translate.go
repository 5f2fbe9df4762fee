package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MDU-PHL/who2tbp/internal/gff"
	"github.com/MDU-PHL/who2tbp/internal/hgvs"
	"github.com/MDU-PHL/who2tbp/internal/output"
)

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [token...]",
		Short: "Translate individual WHO variant tokens to HGVS",
		Long: `Translate WHO catalogue variant tokens given as arguments, or one per line
on stdin when no arguments are given. Output is tab-delimited with the
translation status of every token.

Coding indels need strand information; without --gff every gene is
assumed to be on the forward strand and the status says so.`,
		Example: `  who2tbp translate rpoB_S450L katG_S315T
  who2tbp translate --gff H37Rv.gff3 pncA_390_del_4_cacat_c
  cut -f1 tokens.txt | who2tbp translate --gff H37Rv.gff3`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, "gff")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := args
			if len(tokens) == 0 {
				var err error
				tokens, err = readTokens(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return runTranslate(cmd.Context(), viper.GetString("gff"), tokens, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("gff", "", "GFF3 annotation with gene strands (plain or gzip)")

	return cmd
}

func runTranslate(ctx context.Context, gffPath string, tokens []string, w io.Writer) error {
	var strands hgvs.StrandLookup
	if gffPath != "" {
		loader := gff.NewLoader(gffPath)
		loader.SetLogger(logger)
		m, err := loader.Load()
		if err != nil {
			return fmt.Errorf("loading GFF: %w", err)
		}
		strands = m
	}

	tr := hgvs.NewTranslator(strands)
	tr.SetLogger(logger)

	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	results, errs, err := tr.TranslateBatch(ctx, tokens, 0)
	if err != nil {
		return err
	}

	failed := 0
	for i, token := range tokens {
		if errs[i] != nil {
			failed++
			logger.Debug("translation failed", zap.String("token", token), zap.Error(errs[i]))
		}
		if err := tw.Write(token, results[i], errs[i]); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	if failed > 0 {
		logger.Warn("some tokens were not translated",
			zap.Int("failed", failed),
			zap.Int("total", len(tokens)))
	}
	return nil
}

// readTokens reads one token per line, skipping blank lines and '#' comments.
// Only the first whitespace-separated field of each line is used.
func readTokens(r io.Reader) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		tokens = append(tokens, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tokens: %w", err)
	}
	return tokens, nil
}
