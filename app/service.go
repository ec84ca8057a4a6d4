package app

import (
	"context"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/balance"
	"claimlab/internal/dispatch"
	"claimlab/internal/errors"
	"claimlab/internal/logging"
	"claimlab/internal/segment"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options configures one pipeline run over a spec list.
type Options struct {
	Alpha            float64 // significance level for the decision rule
	MinSampleSize    int     // per-group floor, 0 disables the gate
	BalanceThreshold float64 // p-value below which a covariate is flagged
	StrictBalance    bool    // skip specs with flagged covariates instead of annotating
	Parallel         bool    // run independent specs concurrently
	Workers          int     // concurrency limit when Parallel, 0 = spec count
}

// DefaultOptions returns the defaults documented in the run config.
func DefaultOptions() Options {
	return Options{
		Alpha:            0.05,
		MinSampleSize:    dispatch.DefaultMinSampleSize,
		BalanceThreshold: 0.05,
	}
}

// ABTestService orchestrates the hypothesis-testing pipeline: for each
// configured spec it segments the record set, optionally verifies
// covariate balance, dispatches the statistical test, and collects the
// immutable result. Specs are isolated: a failure in one never aborts the
// remainder, and partial results are always returned.
type ABTestService struct {
	segmenter  *segment.Segmenter
	checker    *balance.Checker
	dispatcher *dispatch.Dispatcher
	log        logging.Logger
}

// NewABTestService wires the pipeline components around one logger.
func NewABTestService(log logging.Logger) *ABTestService {
	return &ABTestService{
		segmenter:  segment.NewSegmenter(log),
		checker:    balance.NewChecker(log),
		dispatcher: dispatch.NewDispatcher(log),
		log:        log,
	}
}

// RunAll executes every spec against the KPI-augmented table and returns
// the ordered list of results for the specs that completed. Skipped specs
// are logged with their condition code and omitted.
func (s *ABTestService) RunAll(ctx context.Context, t *dataset.Table, specs []abtest.TestSpec, opts Options) []abtest.TestResult {
	s.dispatcher.WithMinSampleSize(opts.MinSampleSize)

	if opts.Parallel {
		return s.runParallel(ctx, t, specs, opts)
	}

	results := make([]abtest.TestResult, 0, len(specs))
	for _, spec := range specs {
		result, err := s.RunSpec(ctx, t, spec, opts)
		if err != nil {
			s.log.Warn("run: skipping %q: [%s] %v", spec.Name, errors.CodeOf(err), err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// RunSpec executes a single spec: segment, balance-check, dispatch.
func (s *ABTestService) RunSpec(ctx context.Context, t *dataset.Table, spec abtest.TestSpec, opts Options) (abtest.TestResult, error) {
	if err := ctx.Err(); err != nil {
		return abtest.TestResult{}, err
	}

	groupA, groupB, err := s.segmenter.Split(t, spec.Feature, spec.GroupA, spec.GroupB)
	if err != nil {
		return abtest.TestResult{}, err
	}

	var flags []string
	if len(spec.Covariates) > 0 {
		report := s.checker.Check(groupA, groupB, spec.Covariates)
		for _, row := range balance.FlagImbalances(report, opts.BalanceThreshold) {
			flags = append(flags, row.Covariate)
		}
		if len(flags) > 0 {
			s.log.Warn("run: %q [%s]: groups differ on covariates %v (threshold %.3f)",
				spec.Name,
				segment.Describe(spec.Feature, spec.GroupA, spec.GroupB, groupA.NumRows(), groupB.NumRows()),
				flags, opts.BalanceThreshold)
			if opts.StrictBalance {
				return abtest.TestResult{}, errors.ImbalancedCovariates(flags)
			}
		}
	}

	stat, pValue, err := s.dispatcher.Run(groupA, groupB, spec.KPI, spec.Test)
	if err != nil {
		return abtest.TestResult{}, err
	}

	return abtest.TestResult{
		ID:           uuid.New(),
		Name:         spec.Name,
		Feature:      spec.Feature,
		GroupA:       spec.GroupA,
		GroupB:       spec.GroupB,
		KPI:          spec.KPI.String(),
		Test:         spec.Test.String(),
		Statistic:    stat,
		PValue:       pValue,
		Decision:     abtest.Decide(pValue, opts.Alpha),
		GroupASize:   groupA.NumRows(),
		GroupBSize:   groupB.NumRows(),
		BalanceFlags: flags,
	}, nil
}

// runParallel executes independent specs concurrently. Each spec works on
// its own materialized group pair over the shared immutable table, so the
// only coordination is slotting results back in spec order.
func (s *ABTestService) runParallel(ctx context.Context, t *dataset.Table, specs []abtest.TestSpec, opts Options) []abtest.TestResult {
	slots := make([]*abtest.TestResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, spec := range specs {
		g.Go(func() error {
			result, err := s.RunSpec(gctx, t, spec, opts)
			if err != nil {
				// Spec isolation: log and leave the slot empty.
				s.log.Warn("run: skipping %q: [%s] %v", spec.Name, errors.CodeOf(err), err)
				return nil
			}
			slots[i] = &result
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, skips are logged in place

	results := make([]abtest.TestResult, 0, len(specs))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}
