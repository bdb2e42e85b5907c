package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/datasource/alphamissense"
	"github.com/inodb/vibe-prio/internal/decompose"
	"github.com/inodb/vibe-prio/internal/engine"
	"github.com/inodb/vibe-prio/internal/output"
	"github.com/inodb/vibe-prio/internal/pipeline"
	"github.com/inodb/vibe-prio/internal/popdata"
	"github.com/inodb/vibe-prio/internal/prioritize"
	"github.com/inodb/vibe-prio/internal/resolve"
	"github.com/inodb/vibe-prio/internal/store"
	"github.com/inodb/vibe-prio/internal/svmatch"
	"github.com/inodb/vibe-prio/internal/variant"
	"github.com/inodb/vibe-prio/internal/vcf"
	"github.com/inodb/vibe-prio/internal/whitelist"
)

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <input.vcf>",
		Short: "Annotate, score and rank variants in a VCF file",
		Long: `Decompose and normalize every record, annotate the alleles against GENCODE
transcripts, resolve population data and write one line per variant and gene.
With --format vcf the input records are copied with a PRIO INFO field instead.
Gene rankings are written when --genes is set. Use '-' to read stdin.`,
		Example: `  vibe-prio annotate --gtf gencode.v46.annotation.gtf.gz proband.vcf.gz
  vibe-prio annotate --variants-db variants.duckdb --genes genes.tsv -o variants.tsv in.vcf
  cat in.vcf | vibe-prio annotate --proband NA12878 -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("assembly", "GRCh38", "Genome assembly: GRCh37 or GRCh38")
	f.Int("workers", 0, "Worker goroutines (default: number of CPUs)")
	f.String("proband", "", "Sample scored for inheritance (default: first sample)")
	f.String("gtf", "", "GENCODE annotation GTF")
	f.String("fasta", "", "GENCODE transcript FASTA (enables protein-level effects)")
	f.String("regulatory", "", "Regulatory feature BED file")
	f.String("variants-db", "", "DuckDB allele property store")
	f.String("sv-db", "", "DuckDB structural variant catalogue")
	f.String("alphamissense-db", "", "DuckDB AlphaMissense store")
	f.String("cadd", "", "bgzipped, tabix-indexed CADD scores")
	f.String("remm", "", "bgzipped, tabix-indexed REMM scores")
	f.String("whitelist", "", "Whitelisted alleles (CHR POS REF ALT)")
	f.String("phenotype", "", "Gene phenotype scores (GENE SCORE)")
	f.StringSlice("frequency-sources", nil, "Frequency sources to use")
	f.StringSlice("pathogenicity-sources", nil, "Pathogenicity predictors to use")
	f.StringSlice("modes", nil, "Inheritance modes to score (AD,AR,XD,XR,MT,ANY)")
	f.Float64("min-similarity", svmatch.DefaultMinSimilarity, "Minimum structural variant similarity")
	f.Int("cache-size", 100000, "Entries per lookup cache")
	f.Bool("contributing-only", false, "Omit genes without contributing variants")
	f.StringP("output", "o", "", "Variant output file (default: stdout)")
	f.String("format", "tsv", "Variant output format: tsv or vcf")
	f.String("genes", "", "Gene ranking output file")

	bindFlags(cmd, map[string]string{
		"assembly":                 "assembly",
		"workers":                  "workers",
		"proband":                  "proband",
		"transcripts.gtf":          "gtf",
		"transcripts.fasta":        "fasta",
		"data.regulatory":          "regulatory",
		"data.variants":            "variants-db",
		"data.sv":                  "sv-db",
		"data.alphamissense":       "alphamissense-db",
		"data.cadd":                "cadd",
		"data.remm":                "remm",
		"data.whitelist":           "whitelist",
		"data.phenotype":           "phenotype",
		"sources.frequency":        "frequency-sources",
		"sources.pathogenicity":    "pathogenicity-sources",
		"modes":                    "modes",
		"sv.min_similarity":        "min-similarity",
		"cache.size":               "cache-size",
		"output.contributing_only": "contributing-only",
		"output.variants":          "output",
		"output.format":            "format",
		"output.genes":             "genes",
	})

	return cmd
}

// bindFlags binds viper keys to the command's flags when the command runs.
// Several commands share keys, so binding is deferred to the one executing.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for key, name := range keys {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
		return nil
	}
}

// closers releases opened stores in reverse order.
type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].Close()
	}
}

func runAnnotate(cmd *cobra.Command, inputPath string) error {
	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	assembly, err := contig.ParseAssembly(viper.GetString("assembly"))
	if err != nil {
		return err
	}

	gtfPath := viper.GetString("transcripts.gtf")
	if gtfPath == "" {
		return fmt.Errorf("no GENCODE GTF configured: use --gtf or set transcripts.gtf")
	}
	eng, err := engine.Load(assembly, gtfPath, viper.GetString("transcripts.fasta"), logger)
	if err != nil {
		return err
	}

	var regulatory *annotate.RegulatoryIndex
	if path := viper.GetString("data.regulatory"); path != "" {
		if regulatory, err = annotate.LoadRegulatory(path); err != nil {
			return err
		}
		logger.Info("loaded regulatory features", zap.Int("features", regulatory.Len()))
	}
	adapter := annotate.NewAdapter(eng, regulatory)
	adapter.SetLogger(logger)

	var open closers
	defer open.Close()
	resolver, err := openResolver(assembly, logger, &open)
	if err != nil {
		return err
	}

	var wl *whitelist.Whitelist
	if path := viper.GetString("data.whitelist"); path != "" {
		if wl, err = whitelist.Load(path, logger); err != nil {
			return err
		}
	}

	scorer, err := newScorer()
	if err != nil {
		return err
	}

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	samples := parser.SampleNames()
	scorer.Proband = viper.GetString("proband")
	if scorer.Proband == "" && len(samples) > 0 {
		scorer.Proband = samples[0]
	}

	dec := decompose.New(adapter, samples)
	dec.SetLogger(logger)
	pl := pipeline.New(dec, resolver, wl, viper.GetInt("workers"))
	pl.SetLogger(logger)

	out := cmd.OutOrStdout()
	if path := viper.GetString("output.variants"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	vw, err := newRecordWriter(viper.GetString("output.format"), out, parser.Header())
	if err != nil {
		return err
	}
	if err := vw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var genic []*variant.Evaluation
	sum, err := pl.Run(cmd.Context(), parser, func(rec *vcf.Record, evals []*variant.Evaluation) error {
		if err := vw.Write(rec, evals); err != nil {
			return fmt.Errorf("write variant: %w", err)
		}
		for _, e := range evals {
			if e.Annotated && e.GeneSymbol() != "" {
				genic = append(genic, e)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := vw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	hits, misses := resolver.Stats()
	logger.Info("run complete", append(sum.Fields(),
		zap.Int("workers", pl.Workers()),
		zap.Int64("cache_hits", hits),
		zap.Int64("cache_misses", misses))...)

	genesPath := viper.GetString("output.genes")
	if genesPath == "" {
		return nil
	}
	scores := scorer.Score(genic)
	prioritize.Sort(scores)
	ranked, err := prioritize.Rank(scores, viper.GetBool("output.contributing_only"))
	if err != nil {
		return err
	}
	gf, err := os.Create(genesPath)
	if err != nil {
		return fmt.Errorf("create gene output file: %w", err)
	}
	defer gf.Close()
	if err := output.NewGeneWriter(gf).WriteAll(ranked); err != nil {
		return fmt.Errorf("write gene ranking: %w", err)
	}
	logger.Info("wrote gene ranking", zap.String("path", genesPath), zap.Int("rows", len(ranked)))
	return nil
}

// recordWriter writes one input record and its evaluations.
type recordWriter interface {
	WriteHeader() error
	Write(rec *vcf.Record, evals []*variant.Evaluation) error
	Flush() error
}

// tsvWriter writes the evaluations of a record, one line each.
type tsvWriter struct {
	*output.VariantWriter
}

func (w tsvWriter) Write(_ *vcf.Record, evals []*variant.Evaluation) error {
	for _, e := range evals {
		if err := w.VariantWriter.Write(e); err != nil {
			return err
		}
	}
	return nil
}

func newRecordWriter(format string, w io.Writer, header []string) (recordWriter, error) {
	switch strings.ToLower(format) {
	case "", "tsv":
		return tsvWriter{output.NewVariantWriter(w)}, nil
	case "vcf":
		return output.NewVCFWriter(w, header), nil
	}
	return nil, fmt.Errorf("unknown output format %q: use tsv or vcf", format)
}

// openResolver opens every configured store, wrapping each in a lookup
// cache, and the structural variant catalogue when one is configured.
func openResolver(assembly contig.Assembly, logger *zap.Logger, open *closers) (*resolve.Resolver, error) {
	cfg, err := sourceConfig()
	if err != nil {
		return nil, err
	}
	cfg.CacheSize = viper.GetInt("cache.size")

	var stores []store.AlleleStore
	if path := viper.GetString("data.variants"); path != "" {
		db, err := store.OpenDuckDB(path)
		if err != nil {
			return nil, err
		}
		*open = append(*open, db)
		db.SetLogger(logger)
		stores = append(stores, store.NewCached(db, cfg.CacheSize))
	}
	if path := viper.GetString("data.alphamissense"); path != "" {
		am, err := alphamissense.Open(path)
		if err != nil {
			return nil, err
		}
		*open = append(*open, am)
		am.SetLogger(logger)
		if err := am.PreloadToMemory(); err != nil {
			return nil, err
		}
		stores = append(stores, am)
	}
	for _, tc := range []struct {
		key string
		cfg store.TabixConfig
	}{
		{"data.cadd", store.CADDConfig},
		{"data.remm", store.REMMConfig},
	} {
		path := viper.GetString(tc.key)
		if path == "" {
			continue
		}
		tbx, err := store.OpenTabix(path, tc.cfg)
		if err != nil {
			return nil, err
		}
		*open = append(*open, tbx)
		tbx.SetLogger(logger)
		stores = append(stores, store.NewCached(tbx, cfg.CacheSize))
	}

	var structural resolve.StructuralMatcher
	if path := viper.GetString("data.sv"); path != "" {
		db, err := store.OpenDuckDB(path)
		if err != nil {
			return nil, err
		}
		*open = append(*open, db)
		src, err := svmatch.NewDuckDBSource(db.DB())
		if err != nil {
			return nil, &store.UnavailableError{Name: "sv", Path: path, Err: err}
		}
		*open = append(*open, src)
		src.SetLogger(logger)
		m := svmatch.New(assembly, viper.GetFloat64("sv.min_similarity"), src)
		m.SetLogger(logger)
		structural = m
	}

	logger.Info("opened population data",
		zap.Int("stores", len(stores)),
		zap.Bool("structural", structural != nil))

	r := resolve.New(cfg, structural, stores...)
	r.SetLogger(logger)
	return r, nil
}

func sourceConfig() (resolve.Config, error) {
	var cfg resolve.Config
	for _, s := range splitList(viper.GetStringSlice("sources.frequency")) {
		src, err := popdata.ParseFrequencySource(s)
		if err != nil {
			return cfg, err
		}
		cfg.FrequencySources = append(cfg.FrequencySources, src)
	}
	for _, s := range splitList(viper.GetStringSlice("sources.pathogenicity")) {
		src, err := popdata.ParsePathogenicitySource(s)
		if err != nil {
			return cfg, err
		}
		cfg.PathogenicitySources = append(cfg.PathogenicitySources, src)
	}
	return cfg, nil
}

func newScorer() (prioritize.Scorer, error) {
	var s prioritize.Scorer
	for _, m := range splitList(viper.GetStringSlice("modes")) {
		mode, err := prioritize.ParseInheritanceMode(m)
		if err != nil {
			return s, err
		}
		s.Modes = append(s.Modes, mode)
	}
	if path := viper.GetString("data.phenotype"); path != "" {
		scores, err := prioritize.LoadPhenotypeScores(path)
		if err != nil {
			return s, err
		}
		s.Phenotype = scores
	}
	return s, nil
}

// splitList flattens comma-separated entries, which environment variables
// and config set produce.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
