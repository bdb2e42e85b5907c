// Package pipeline runs records through decomposition, population data
// resolution, whitelisting and variant scoring on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-prio/internal/prioritize"
	"github.com/inodb/vibe-prio/internal/variant"
	"github.com/inodb/vibe-prio/internal/vcf"
	"github.com/inodb/vibe-prio/internal/whitelist"
)

// Decomposer splits a record into single-allele evaluations.
type Decomposer interface {
	Decompose(rec *vcf.Record) (evals []*variant.Evaluation, skipped int)
}

// Resolver attaches frequency and pathogenicity data to an evaluation.
type Resolver interface {
	Resolve(e *variant.Evaluation)
}

// Summary counts what a run saw. Variants counts evaluations, so an allele
// split across two genes counts twice.
type Summary struct {
	Records          int
	MalformedRecords int
	SkippedAlleles   int
	Variants         int
	Annotated        int
	Unannotated      int
	Whitelisted      int
}

// Fields returns the summary as log fields.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("records", s.Records),
		zap.Int("malformed_records", s.MalformedRecords),
		zap.Int("skipped_alleles", s.SkippedAlleles),
		zap.Int("variants", s.Variants),
		zap.Int("annotated", s.Annotated),
		zap.Int("unannotated", s.Unannotated),
		zap.Int("whitelisted", s.Whitelisted),
	}
}

// Pipeline processes records concurrently and hands results back in input
// order.
type Pipeline struct {
	decomposer Decomposer
	resolver   Resolver
	whitelist  *whitelist.Whitelist
	workers    int
	logger     *zap.Logger
}

// New creates a pipeline. A nil resolver skips population data, a nil
// whitelist matches nothing. If workers is 0, runtime.NumCPU() is used.
func New(d Decomposer, r Resolver, wl *whitelist.Whitelist, workers int) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{
		decomposer: d,
		resolver:   r,
		whitelist:  wl,
		workers:    workers,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for malformed records.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Workers returns the size of the worker pool.
func (p *Pipeline) Workers() int {
	return p.workers
}

type workItem struct {
	seq int
	rec *vcf.Record
}

type workResult struct {
	seq     int
	rec     *vcf.Record
	evals   []*variant.Evaluation
	skipped int
}

// Run reads records until r is exhausted and calls fn with each record and
// its scored evaluations, in record order. Records whose alleles were all
// dropped arrive with no evaluations. Malformed records are logged and
// counted. An error from r, from fn or a cancelled ctx stops the run.
func (p *Pipeline) Run(ctx context.Context, r vcf.RecordReader, fn func(*vcf.Record, []*variant.Evaluation) error) (Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	items := make(chan workItem, 2*p.workers)
	results := make(chan workResult, 2*p.workers)

	var records, malformed int
	g.Go(func() error {
		defer close(items)
		for seq := 0; ; {
			rec, err := r.Next()
			if err != nil {
				var pe *vcf.ParseError
				if errors.As(err, &pe) {
					p.logger.Warn("skipping malformed record", zap.Error(err))
					malformed++
					continue
				}
				return fmt.Errorf("read record: %w", err)
			}
			if rec == nil {
				return nil
			}
			records++
			select {
			case items <- workItem{seq: seq, rec: rec}:
				seq++
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			defer wg.Done()
			for item := range items {
				res := p.process(item)
				select {
				case results <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var sum Summary
	g.Go(func() error {
		return orderedCollect(results, func(res workResult) error {
			sum.add(res)
			return fn(res.rec, res.evals)
		})
	})

	err := g.Wait()
	sum.Records = records
	sum.MalformedRecords = malformed
	return sum, err
}

func (p *Pipeline) process(item workItem) workResult {
	evals, skipped := p.decomposer.Decompose(item.rec)
	for _, e := range evals {
		if p.resolver != nil {
			p.resolver.Resolve(e)
		}
		e.Whitelisted = p.whitelist.Contains(e.Variant.Key())
		prioritize.ScoreVariant(e)
	}
	return workResult{seq: item.seq, rec: item.rec, evals: evals, skipped: skipped}
}

func (s *Summary) add(res workResult) {
	s.SkippedAlleles += res.skipped
	s.Variants += len(res.evals)
	for _, e := range res.evals {
		if e.Annotated {
			s.Annotated++
		} else {
			s.Unannotated++
		}
		if e.Whitelisted {
			s.Whitelisted++
		}
	}
}

// orderedCollect calls fn for each result in sequence order, buffering
// results that arrive early. Returning early is safe: workers select on the
// group context, which is cancelled once the error reaches the group.
func orderedCollect(results <-chan workResult, fn func(workResult) error) error {
	pending := make(map[int]workResult)
	next := 0

	for r := range results {
		pending[r.seq] = r
		for {
			rr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := fn(rr); err != nil {
				return err
			}
		}
	}
	return nil
}
