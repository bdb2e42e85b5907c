// Package resolve looks up population frequency and pathogenicity data for
// normalized variants, applying per-source eligibility rules.
package resolve

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/popdata"
	"github.com/inodb/vibe-prio/internal/store"
	"github.com/inodb/vibe-prio/internal/variant"
)

// StructuralMatcher finds catalogue data for structural variants.
type StructuralMatcher interface {
	Frequency(v allele.Variant, requested map[popdata.FrequencySource]bool) popdata.FrequencyData
	Pathogenicity(v allele.Variant) popdata.PathogenicityData
}

// Config selects the sources a Resolver reports.
type Config struct {
	FrequencySources     []popdata.FrequencySource
	PathogenicitySources []popdata.PathogenicitySource
	// CacheSize bounds each result memo; <= 0 means unbounded.
	CacheSize int
}

// Resolver merges data from a fixed set of allele stores. It is safe for
// concurrent use.
type Resolver struct {
	stores     []store.AlleleStore
	structural StructuralMatcher
	freqSrc    map[popdata.FrequencySource]bool
	pathSrc    []popdata.PathogenicitySource
	freqMemo   *store.Memo[popdata.FrequencyData]
	pathMemo   *store.Memo[popdata.PathogenicityData]
	logger     *zap.Logger
}

// New creates a resolver over stores, queried in order. structural may be
// nil, in which case structural variants resolve to empty data.
func New(cfg Config, structural StructuralMatcher, stores ...store.AlleleStore) *Resolver {
	freq := make(map[popdata.FrequencySource]bool, len(cfg.FrequencySources))
	for _, s := range cfg.FrequencySources {
		freq[s] = true
	}
	path := append([]popdata.PathogenicitySource(nil), cfg.PathogenicitySources...)
	sort.Slice(path, func(i, j int) bool { return path[i] < path[j] })
	return &Resolver{
		stores:     stores,
		structural: structural,
		freqSrc:    freq,
		pathSrc:    path,
		freqMemo:   store.NewMemo[popdata.FrequencyData](cfg.CacheSize),
		pathMemo:   store.NewMemo[popdata.PathogenicityData](cfg.CacheSize),
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Resolve fills the frequency and pathogenicity data of e.
func (r *Resolver) Resolve(e *variant.Evaluation) {
	e.Frequency = r.Frequency(e.Variant)
	e.Pathogenicity = r.Pathogenicity(e.Variant, e.Effect())
}

// Frequency returns the frequencies of v from the configured sources, or
// the empty sentinel.
func (r *Resolver) Frequency(v allele.Variant) popdata.FrequencyData {
	if len(r.freqSrc) == 0 {
		return popdata.EmptyFrequency()
	}
	if v.IsStructural() {
		if r.structural == nil {
			return popdata.EmptyFrequency()
		}
		return r.structural.Frequency(v, r.freqSrc)
	}
	key := v.Key()
	return r.freqMemo.Do(key, key.String(), func() popdata.FrequencyData {
		return r.fetch(key).FrequencyData().Filter(r.freqSrc)
	})
}

// Pathogenicity returns predictor scores and the ClinVar record of v.
// Missense-only predictors are kept only for missense effects and
// non-coding predictors only for non-coding effects. The ClinVar record is
// kept whatever the effect. Only an empty requested predictor set returns
// the empty sentinel without store access.
func (r *Resolver) Pathogenicity(v allele.Variant, effect annotate.Effect) popdata.PathogenicityData {
	if len(r.pathSrc) == 0 {
		return popdata.EmptyPathogenicity()
	}
	if v.IsStructural() {
		if r.structural == nil {
			return popdata.EmptyPathogenicity()
		}
		return r.structural.Pathogenicity(v)
	}

	eligible := r.eligible(effect)
	key := v.Key()
	return r.pathMemo.Do(pathKey{key: key, sources: sourceID(eligible)}, key.String()+"|"+sourceID(eligible), func() popdata.PathogenicityData {
		allowed := make(map[popdata.PathogenicitySource]bool, len(eligible))
		for _, s := range eligible {
			allowed[s] = true
		}
		return r.fetch(key).PathogenicityData().Filter(allowed)
	})
}

type pathKey struct {
	key     allele.Key
	sources string
}

func sourceID(srcs []popdata.PathogenicitySource) string {
	parts := make([]string, len(srcs))
	for i, s := range srcs {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

// eligible returns the requested predictors that may score effect.
func (r *Resolver) eligible(effect annotate.Effect) []popdata.PathogenicitySource {
	var out []popdata.PathogenicitySource
	for _, s := range r.pathSrc {
		if s.MissenseOnly() && !effect.IsMissense() {
			continue
		}
		if s.NonCodingOnly() && !effect.IsNonCoding() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// fetch merges the properties held by every store for key.
func (r *Resolver) fetch(key allele.Key) popdata.Properties {
	var props popdata.Properties
	for _, s := range r.stores {
		if p, ok := s.Get(key); ok {
			props = props.Merge(p)
		}
	}
	return props
}

// Stats returns combined cache hits and misses of both memos.
func (r *Resolver) Stats() (hits, misses int64) {
	fh, fm := r.freqMemo.Stats()
	ph, pm := r.pathMemo.Stats()
	return fh + ph, fm + pm
}
