package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/datasource/alphamissense"
	"github.com/inodb/vibe-prio/internal/store"
	"github.com/inodb/vibe-prio/internal/svmatch"
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk-load population data into DuckDB stores",
		Long: `Load tab-separated population data into the DuckDB files used by annotate.
Input files may be gzip-compressed. Rows that cannot be normalized are
skipped and counted.`,
	}
	cmd.AddCommand(newLoadVariantsCmd())
	cmd.AddCommand(newLoadSVCmd())
	cmd.AddCommand(newLoadAlphaMissenseCmd())
	return cmd
}

func newLoadVariantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variants <properties.tsv>",
		Short: "Load allele frequencies, predictor scores and ClinVar records",
		Long: `Columns: CHROM POS REF ALT KIND SOURCE VALUE [EXTRA...]
KIND is id, frequency, pathogenicity or clinvar.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetBool("verbose"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			path := viper.GetString("data.variants")
			if path == "" {
				return fmt.Errorf("no store path: use --db or set data.variants")
			}
			db, err := store.OpenDuckDB(path)
			if err != nil {
				return err
			}
			defer db.Close()
			db.SetLogger(logger)

			stats, err := db.LoadFile(args[0])
			if err != nil {
				return err
			}
			total, err := db.Count()
			if err != nil {
				return err
			}
			logger.Info("loaded allele properties",
				zap.String("db", path),
				zap.Int("rows", stats.Rows),
				zap.Int("skipped", stats.Skipped),
				zap.Int64("total", total))
			return nil
		},
	}
	cmd.Flags().String("db", "", "DuckDB allele property store")
	bindFlags(cmd, map[string]string{"data.variants": "db"})
	return cmd
}

func newLoadSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sv <catalogue.tsv>",
		Short: "Load a structural variant catalogue",
		Long: `Columns: CHROM START END SVTYPE SOURCE ID AC AF
SOURCE is a structural frequency source or CLINVAR, in which case AF holds
the clinical significance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetBool("verbose"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			path := viper.GetString("data.sv")
			if path == "" {
				return fmt.Errorf("no store path: use --db or set data.sv")
			}
			db, err := store.OpenDuckDB(path)
			if err != nil {
				return err
			}
			defer db.Close()
			src, err := svmatch.NewDuckDBSource(db.DB())
			if err != nil {
				return err
			}
			defer src.Close()
			src.SetLogger(logger)

			stats, err := src.LoadFile(args[0])
			if err != nil {
				return err
			}
			total, err := src.Count()
			if err != nil {
				return err
			}
			logger.Info("loaded structural variant catalogue",
				zap.String("db", path),
				zap.Int("rows", stats.Rows),
				zap.Int("skipped", stats.Skipped),
				zap.Int64("total", total))
			return nil
		},
	}
	cmd.Flags().String("db", "", "DuckDB structural variant catalogue")
	bindFlags(cmd, map[string]string{"data.sv": "db"})
	return cmd
}

func newLoadAlphaMissenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alphamissense <AlphaMissense_hg38.tsv.gz>",
		Short: "Load AlphaMissense predictions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetBool("verbose"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			path := viper.GetString("data.alphamissense")
			if path == "" {
				return fmt.Errorf("no store path: use --db or set data.alphamissense")
			}
			am, err := alphamissense.Open(path)
			if err != nil {
				return err
			}
			defer am.Close()

			if err := am.Load(args[0]); err != nil {
				return err
			}
			total, err := am.Count()
			if err != nil {
				return err
			}
			logger.Info("loaded AlphaMissense predictions",
				zap.String("db", path),
				zap.Int64("total", total))
			return nil
		},
	}
	cmd.Flags().String("db", "", "DuckDB AlphaMissense store")
	bindFlags(cmd, map[string]string{"data.alphamissense": "db"})
	return cmd
}
