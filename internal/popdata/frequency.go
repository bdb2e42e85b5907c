// Package popdata models population frequency, pathogenicity prediction and
// clinical significance data attached to a variant.
package popdata

import (
	"fmt"
	"strings"
)

// FrequencySource names a population allele frequency catalogue.
type FrequencySource string

const (
	ThousandGenomes FrequencySource = "THOUSAND_GENOMES"
	TOPMed          FrequencySource = "TOPMED"
	UK10K           FrequencySource = "UK10K"

	ESPAfricanAmerican  FrequencySource = "ESP_AA"
	ESPEuropeanAmerican FrequencySource = "ESP_EA"
	ESPAll              FrequencySource = "ESP_ALL"

	ExACAfrican        FrequencySource = "EXAC_AFR"
	ExACAmerican       FrequencySource = "EXAC_AMR"
	ExACEastAsian      FrequencySource = "EXAC_EAS"
	ExACFinnish        FrequencySource = "EXAC_FIN"
	ExACNonFinnishEuro FrequencySource = "EXAC_NFE"
	ExACOther          FrequencySource = "EXAC_OTH"
	ExACSouthAsian     FrequencySource = "EXAC_SAS"

	GnomADExomeAfrican        FrequencySource = "GNOMAD_E_AFR"
	GnomADExomeAmerican       FrequencySource = "GNOMAD_E_AMR"
	GnomADExomeAshkenazi      FrequencySource = "GNOMAD_E_ASJ"
	GnomADExomeEastAsian      FrequencySource = "GNOMAD_E_EAS"
	GnomADExomeFinnish        FrequencySource = "GNOMAD_E_FIN"
	GnomADExomeNonFinnishEuro FrequencySource = "GNOMAD_E_NFE"
	GnomADExomeOther          FrequencySource = "GNOMAD_E_OTH"
	GnomADExomeSouthAsian     FrequencySource = "GNOMAD_E_SAS"

	GnomADGenomeAfrican        FrequencySource = "GNOMAD_G_AFR"
	GnomADGenomeAmerican       FrequencySource = "GNOMAD_G_AMR"
	GnomADGenomeAshkenazi      FrequencySource = "GNOMAD_G_ASJ"
	GnomADGenomeEastAsian      FrequencySource = "GNOMAD_G_EAS"
	GnomADGenomeFinnish        FrequencySource = "GNOMAD_G_FIN"
	GnomADGenomeNonFinnishEuro FrequencySource = "GNOMAD_G_NFE"
	GnomADGenomeOther          FrequencySource = "GNOMAD_G_OTH"
	GnomADGenomeSouthAsian     FrequencySource = "GNOMAD_G_SAS"

	Local FrequencySource = "LOCAL"

	// Structural variant catalogues.
	GnomADSV FrequencySource = "GNOMAD_SV"
	DbVar    FrequencySource = "DBVAR"
	DGV      FrequencySource = "DGV"
	Decipher FrequencySource = "DECIPHER"
	GoNL     FrequencySource = "GONL"
)

// AllFrequencySources lists every known frequency source.
var AllFrequencySources = []FrequencySource{
	ThousandGenomes, TOPMed, UK10K,
	ESPAfricanAmerican, ESPEuropeanAmerican, ESPAll,
	ExACAfrican, ExACAmerican, ExACEastAsian, ExACFinnish, ExACNonFinnishEuro, ExACOther, ExACSouthAsian,
	GnomADExomeAfrican, GnomADExomeAmerican, GnomADExomeAshkenazi, GnomADExomeEastAsian,
	GnomADExomeFinnish, GnomADExomeNonFinnishEuro, GnomADExomeOther, GnomADExomeSouthAsian,
	GnomADGenomeAfrican, GnomADGenomeAmerican, GnomADGenomeAshkenazi, GnomADGenomeEastAsian,
	GnomADGenomeFinnish, GnomADGenomeNonFinnishEuro, GnomADGenomeOther, GnomADGenomeSouthAsian,
	Local,
	GnomADSV, DbVar, DGV, Decipher, GoNL,
}

// ParseFrequencySource resolves a source name case-insensitively.
func ParseFrequencySource(s string) (FrequencySource, error) {
	u := FrequencySource(strings.ToUpper(strings.TrimSpace(s)))
	for _, src := range AllFrequencySources {
		if src == u {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown frequency source %q", s)
}

// Frequency is one catalogue's allele frequency, expressed as a percentage.
type Frequency struct {
	Source FrequencySource
	// Percent is the allele frequency in percent (0-100).
	Percent float32
	AC      int // allele or observation count, 0 when unknown
	AN      int
	Homs    int
}

// FromFraction converts a 0-1 allele fraction to a percentage.
func FromFraction(f float64) float32 {
	return float32(f * 100)
}

// FrequencyData is the set of frequencies known for one allele. The zero
// value means "not looked up"; EmptyFrequency means "looked up, no data".
type FrequencyData struct {
	ID       string
	freqs    []Frequency
	resolved bool
}

// EmptyFrequency returns the resolved-but-empty sentinel.
func EmptyFrequency() FrequencyData {
	return FrequencyData{resolved: true}
}

// NewFrequencyData builds resolved data, keeping the first frequency seen
// for each source.
func NewFrequencyData(id string, freqs ...Frequency) FrequencyData {
	fd := FrequencyData{ID: id, resolved: true}
	for _, f := range freqs {
		fd.add(f)
	}
	return fd
}

func (fd *FrequencyData) add(f Frequency) {
	for _, existing := range fd.freqs {
		if existing.Source == f.Source {
			return
		}
	}
	fd.freqs = append(fd.freqs, f)
}

// IsResolved reports whether a lookup has been performed.
func (fd FrequencyData) IsResolved() bool { return fd.resolved }

// IsEmpty reports whether no frequency and no identifier is known.
func (fd FrequencyData) IsEmpty() bool { return len(fd.freqs) == 0 && fd.ID == "" }

// HasFrequencies reports whether at least one numeric frequency is known.
func (fd FrequencyData) HasFrequencies() bool { return len(fd.freqs) > 0 }

// Frequencies returns a copy of the per-source frequencies.
func (fd FrequencyData) Frequencies() []Frequency {
	out := make([]Frequency, len(fd.freqs))
	copy(out, fd.freqs)
	return out
}

// Get returns the frequency for one source.
func (fd FrequencyData) Get(src FrequencySource) (Frequency, bool) {
	for _, f := range fd.freqs {
		if f.Source == src {
			return f, true
		}
	}
	return Frequency{}, false
}

// MaxFrequency returns the highest frequency percentage, or 0.
func (fd FrequencyData) MaxFrequency() float32 {
	var m float32
	for _, f := range fd.freqs {
		if f.Percent > m {
			m = f.Percent
		}
	}
	return m
}

// Filter keeps only the given sources. An empty set keeps nothing.
func (fd FrequencyData) Filter(sources map[FrequencySource]bool) FrequencyData {
	out := FrequencyData{ID: fd.ID, resolved: fd.resolved}
	for _, f := range fd.freqs {
		if sources[f.Source] {
			out.freqs = append(out.freqs, f)
		}
	}
	return out
}

// Merge unions two data sets; entries already in fd win.
func (fd FrequencyData) Merge(other FrequencyData) FrequencyData {
	out := FrequencyData{ID: fd.ID, resolved: fd.resolved || other.resolved}
	if out.ID == "" {
		out.ID = other.ID
	}
	out.freqs = append(out.freqs, fd.freqs...)
	for _, f := range other.freqs {
		out.add(f)
	}
	return out
}
