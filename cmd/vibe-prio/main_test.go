package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with a fresh viper state and an isolated home.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	viper.Reset()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func gtfLine(feature string, start, end int, attrs string) string {
	return strings.Join([]string{
		"chr1", "HAVANA", feature, strconv.Itoa(start), strconv.Itoa(end), ".", "+", ".", attrs,
	}, "\t")
}

const g1Attrs = `gene_id "ENSG1.1"; transcript_id "ENST1.2"; gene_name "G1"; transcript_type "protein_coding"; tag "Ensembl_canonical";`

func TestConfigSetGet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := execute(t, "config", "set", "data.variants", "/data/variants.duckdb")
	assert.Contains(t, out, "Set data.variants = /data/variants.duckdb")

	out = execute(t, "config", "get", "data.variants")
	assert.Equal(t, "/data/variants.duckdb\n", out)

	out = execute(t, "config")
	assert.Contains(t, out, "min_similarity: 0.85")
}

func TestConfigGetUnset(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "get", "data.nothing"})
	assert.Error(t, cmd.Execute())
}

func TestEnvironmentOverridesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIBE_PRIO_SV_MIN_SIMILARITY", "0.7")
	out := execute(t, "config", "get", "sv.min_similarity")
	assert.Equal(t, "0.7\n", out)
}

func TestLoadAndAnnotate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	gtf := writeFile(t, dir, "genes.gtf", strings.Join([]string{
		gtfLine("gene", 1000, 2000, `gene_id "ENSG1.1"; gene_name "G1";`),
		gtfLine("transcript", 1000, 2000, g1Attrs),
		gtfLine("exon", 1000, 1100, g1Attrs+` exon_number 1;`),
		gtfLine("exon", 1201, 1300, g1Attrs+` exon_number 2;`),
	}, "\n")+"\n")

	props := writeFile(t, dir, "props.tsv", "#CHROM\tPOS\tREF\tALT\tKIND\tSOURCE\tVALUE\n"+
		"2\t50000\tC\tT\tfrequency\tTOPMED\t5\n"+
		"2\t50000\tC\tT\tid\t.\trs99\n")
	wl := writeFile(t, dir, "whitelist.tsv", "#CHR\tPOS\tREF\tALT\n1\t1150\tA\tG\n")
	vcfPath := writeFile(t, dir, "in.vcf", "##fileformat=VCFv4.2\n"+
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tproband\n"+
		"1\t1150\t.\tA\tG\t50\tPASS\t.\tGT\t0/1\n"+
		"2\t50000\t.\tC\tT\t50\tPASS\t.\tGT\t1/1\n")

	db := filepath.Join(dir, "db", "variants.duckdb")
	execute(t, "load", "variants", "--db", db, props)

	variantsOut := filepath.Join(dir, "variants.tsv")
	genesOut := filepath.Join(dir, "genes.tsv")
	execute(t, "annotate",
		"--gtf", gtf,
		"--variants-db", db,
		"--whitelist", wl,
		"--workers", "2",
		"-o", variantsOut,
		"--genes", genesOut,
		vcfPath)

	data, err := os.ReadFile(variantsOut)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	header := strings.Split(lines[0], "\t")
	col := func(line, name string) string {
		values := strings.Split(line, "\t")
		for i, h := range header {
			if h == name {
				return values[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}

	assert.Equal(t, "G1", col(lines[1], "GENE"))
	assert.Equal(t, "YES", col(lines[1], "WHITELISTED"))
	assert.Equal(t, "1.0000", col(lines[1], "SCORE"))

	assert.Equal(t, "2", col(lines[2], "#CHROM"))
	assert.Equal(t, "5.0000", col(lines[2], "MAX_FREQ"))
	assert.Equal(t, "0.0000", col(lines[2], "SCORE"))

	genes, err := os.ReadFile(genesOut)
	require.NoError(t, err)
	geneLines := strings.Split(strings.TrimRight(string(genes), "\n"), "\n")
	require.Len(t, geneLines, 6, "G1 under five inheritance modes")
	assert.True(t, strings.HasPrefix(geneLines[1], "1\tG1\tENSG1\tAD\t1.0000"), geneLines[1])
	for _, l := range geneLines[2:] {
		assert.True(t, strings.HasPrefix(l, "2\tG1\t"), l)
	}
}

func TestAnnotateVCFOutput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	gtf := writeFile(t, dir, "genes.gtf", strings.Join([]string{
		gtfLine("gene", 1000, 2000, `gene_id "ENSG1.1"; gene_name "G1";`),
		gtfLine("transcript", 1000, 2000, g1Attrs),
		gtfLine("exon", 1000, 1100, g1Attrs+` exon_number 1;`),
	}, "\n")+"\n")
	vcfPath := writeFile(t, dir, "in.vcf", "##fileformat=VCFv4.2\n"+
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tproband\n"+
		"1\t1050\trs1\tA\tG\t50\tPASS\tDP=9\tGT\t0/1\n"+
		"1\t1060\t.\tA\tG\t50\tPASS\t.\tGT\t0/0\n")

	out := filepath.Join(dir, "out.vcf")
	execute(t, "annotate", "--gtf", gtf, "--format", "vcf", "-o", out, vcfPath)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "##INFO=<ID=PRIO,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "#CHROM"))

	first := strings.Split(lines[3], "\t")
	require.Len(t, first, 10)
	assert.True(t, strings.HasPrefix(first[7], "DP=9;PRIO=G|G1|ENSG1|"), first[7])
	assert.Equal(t, "0/1", first[9])

	second := strings.Split(lines[4], "\t")
	assert.Equal(t, ".", second[7], "hom-ref records carry no PRIO entry")
}
