package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MDU-PHL/who2tbp/internal/catalogue"
	"github.com/MDU-PHL/who2tbp/internal/duckdb"
	"github.com/MDU-PHL/who2tbp/internal/gff"
	"github.com/MDU-PHL/who2tbp/internal/hgvs"
	"github.com/MDU-PHL/who2tbp/internal/output"
)

// convertOptions holds the resolved flag and config values for convert.
type convertOptions struct {
	catalogue string
	gff       string
	filter    string
	output    string
	db        string
	workers   int
	force     bool
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [options] <catalogue>",
		Short: "Convert the WHO mutation catalogue to a TBProfiler CSV",
		Long: `Read the Mutation_catalogue sheet of the WHO catalogue (.xlsx, .xls, or
delimited text), keep rows matching the confidence filter, translate each
variant to HGVS and write a TBProfiler mutation database CSV.

Strand information for coding indels comes from a GFF3 annotation (--gff or
the 'gff' config key). Use '-' to read a delimited catalogue from stdin.`,
		Example: `  who2tbp convert --gff H37Rv.gff3 WHO-catalogue.xlsx > tbdb.csv
  who2tbp convert --gff H37Rv.gff3.gz -f all -o tbdb.csv catalogue.tsv
  who2tbp convert --gff H37Rv.gff3 --db who.duckdb WHO-catalogue.xlsx`,
		Args: usageArgs(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, "gff", "filter", "workers", "db")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			out, _ := cmd.Flags().GetString("output")
			opts := convertOptions{
				catalogue: args[0],
				gff:       viper.GetString("gff"),
				filter:    viper.GetString("filter"),
				output:    out,
				db:        viper.GetString("db"),
				workers:   viper.GetInt("workers"),
				force:     force,
			}
			if opts.gff == "" {
				return newUsageError(cmd, "--gff is required (or set it with: who2tbp config set gff <path>)")
			}
			if _, err := catalogue.ParseFilter(opts.filter); err != nil {
				return newUsageError(cmd, "%v", err)
			}
			return runConvert(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringP("filter", "f", string(catalogue.DefaultFilter), "Confidence filter: "+filterNames())
	cmd.Flags().String("gff", "", "GFF3 annotation with gene strands (plain or gzip)")
	cmd.Flags().StringP("output", "o", "", "Output CSV file (default: stdout)")
	cmd.Flags().Int("workers", 0, "Translation workers (default: number of CPUs)")
	cmd.Flags().String("db", "", "Also store translations in this DuckDB database")
	cmd.Flags().Bool("force", false, "Store translations even if this catalogue was already stored")

	return cmd
}

func runConvert(ctx context.Context, opts convertOptions, stdout, stderr io.Writer) error {
	filter, err := catalogue.ParseFilter(opts.filter)
	if err != nil {
		return err
	}

	// Strand annotation and catalogue are independent; load them together.
	var (
		strands gff.StrandMap
		cat     *catalogue.Catalogue
	)
	var g errgroup.Group
	g.Go(func() error {
		loader := gff.NewLoader(opts.gff)
		loader.SetLogger(logger)
		m, err := loader.Load()
		if err != nil {
			return fmt.Errorf("loading GFF: %w", err)
		}
		strands = m
		return nil
	})
	g.Go(func() error {
		c, err := catalogue.ReadFile(opts.catalogue, filter)
		if err != nil {
			return fmt.Errorf("reading catalogue: %w", err)
		}
		cat = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("loaded catalogue",
		zap.String("path", opts.catalogue),
		zap.String("filter", string(filter)),
		zap.Int("rows", cat.Total),
		zap.Int("selected", len(cat.Rows)))

	tr := hgvs.NewTranslator(strands)
	tr.SetLogger(logger)

	out := stdout
	var outFile *os.File
	if opts.output != "" {
		outFile, err = os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		out = outFile
	}

	var stored []duckdb.Translation
	keep := func(row *catalogue.Row, res hgvs.Result, err error) {
		if opts.db != "" {
			stored = append(stored, duckdb.NewTranslation(row, res, err))
		}
	}

	summary, err := translateCatalogue(ctx, cat, tr, opts.workers, output.NewTBDBWriter(out), keep)
	if outFile != nil {
		err = closeOutput(outFile, err)
	}
	if err != nil {
		return err
	}

	for _, f := range summary.Failures {
		logger.Warn("variant not translated",
			zap.Int("row", f.Row),
			zap.String("token", f.Token),
			zap.String("status", f.Status),
			zap.Error(f.Err))
	}

	if opts.db != "" {
		if err := storeTranslations(ctx, opts, filter, stored); err != nil {
			return err
		}
	}

	summary.WriteSummary(stderr)
	return nil
}

// translateCatalogue translates every selected row on a worker pool and
// writes the translated rows in catalogue order. keep, if non-nil, sees
// every row including failures.
func translateCatalogue(ctx context.Context, cat *catalogue.Catalogue, tr *hgvs.Translator, workers int, w *output.TBDBWriter,
	keep func(*catalogue.Row, hgvs.Result, error)) (*output.Summary, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	items := make(chan hgvs.WorkItem, 2*workers)
	go func() {
		defer close(items)
		for i, row := range cat.Rows {
			select {
			case items <- hgvs.WorkItem{Seq: i, Token: row.Variant, Source: row}:
			case <-ctx.Done():
				return
			}
		}
	}()

	summary := &output.Summary{}
	results := tr.ParallelTranslate(ctx, items, workers)
	err := hgvs.OrderedCollect(results, func(r hgvs.WorkResult) error {
		row := r.Source.(*catalogue.Row)
		summary.Add(row.Num, r.Token, r.Result, r.Err)
		if keep != nil {
			keep(row, r.Result, r.Err)
		}
		if r.Err != nil {
			return nil
		}
		if err := w.Write(row, r.Result); err != nil {
			return fmt.Errorf("writing row %d: %w", row.Num, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flushing output: %w", err)
	}
	return summary, nil
}

// storeTranslations writes translations to the DuckDB store unless the same
// catalogue file was already stored with the same filter.
func storeTranslations(ctx context.Context, opts convertOptions, filter catalogue.Filter, ts []duckdb.Translation) error {
	store, err := duckdb.Open(opts.db)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	var fp duckdb.FileFingerprint
	fromFile := opts.catalogue != "-"
	if fromFile {
		fp, err = duckdb.StatFile(opts.catalogue)
		if err != nil {
			return fmt.Errorf("fingerprinting catalogue: %w", err)
		}
		if !opts.force {
			loaded, err := store.SourceLoaded(fp, string(filter))
			if err != nil {
				return err
			}
			if loaded {
				logger.Info("catalogue already stored, skipping (use --force to store again)",
					zap.String("db", opts.db))
				return nil
			}
		}
	}

	if err := store.WriteTranslations(ctx, ts); err != nil {
		return fmt.Errorf("storing translations: %w", err)
	}
	if fromFile {
		if err := store.RecordSource(fp, string(filter)); err != nil {
			return err
		}
	}
	logger.Info("stored translations", zap.String("db", opts.db), zap.Int("count", len(ts)))
	return nil
}

// closeOutput closes the output file. A close error is returned only when
// err is nil, since a failed write already explains the state of the file.
func closeOutput(c io.Closer, err error) error {
	if cerr := c.Close(); cerr != nil && err == nil {
		return fmt.Errorf("closing output file: %w", cerr)
	}
	return err
}

func filterNames() string {
	return strings.Join(catalogue.FilterNames(), ", ")
}
