package pipeline

import (
	"strconv"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/backfill"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/extract"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/reader"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/rpc"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// Work is what a strategy derives from one batch. Tasks, when present, are
// enriched and handed back to Apply before the commit.
type Work struct {
	Mutations  []store.Mutation
	Tasks      []rpc.Task
	Checkpoint *uint64
	// Position names the batch in logs and errors.
	Position string
}

// Strategy turns batches of type B into store mutations.
type Strategy[B any] interface {
	Extract(b B) (Work, error)
	// Apply merges enrichment results into w's mutations.
	Apply(w Work, results []rpc.Result) []store.Mutation
}

// PairIndex records which accounts touched which tokens, NFTs and pools.
type PairIndex struct {
	extractor extract.Composite
	logger    logpkg.Logger
}

// NewPairIndex builds the strategy for the given extraction rules. It fails
// when the rules carry a filter that does not compile.
func NewPairIndex(rules extract.Rules, logger logpkg.Logger) (*PairIndex, error) {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	ex, err := extract.NewPairIndex(rules)
	if err != nil {
		return nil, err
	}
	return &PairIndex{extractor: ex, logger: logger.WithComponent("driver")}, nil
}

func (p *PairIndex) Extract(b reader.Batch) (Work, error) {
	byPrefix := make(map[string]extract.PairSet)
	for _, blk := range b.Blocks {
		p.logger.Info("Processing block", logpkg.Uint64("height", blk.Height))
		p.extractor.ExtractInto(blk, byPrefix)
	}

	keys := make(map[string]struct{})
	var muts []store.Mutation
	for prefix, set := range byPrefix {
		for _, pair := range set.Sorted() {
			key := prefix + ":" + pair.Subject
			keys[key] = struct{}{}
			muts = append(muts, store.Mutation{Policy: store.SetOrOverwrite, Key: key, Field: pair.Object})
		}
	}
	p.logger.Info("Updating accounts", logpkg.Int("accounts", len(keys)), logpkg.Int("fields", len(muts)))

	h := b.Last.Height
	return Work{Mutations: muts, Checkpoint: &h, Position: b.Last.String()}, nil
}

func (p *PairIndex) Apply(w Work, _ []rpc.Result) []store.Mutation { return w.Mutations }

// BalancePrefix keys balance records: b:<token> field <account>.
const BalancePrefix = "b"

// BalanceBackfill looks up the current balance of every exported pair and
// stores it unless a balance is already recorded.
type BalanceBackfill struct {
	logger logpkg.Logger
	total  int
}

// NewBalanceBackfill builds the backfill strategy.
func NewBalanceBackfill(logger logpkg.Logger) *BalanceBackfill {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &BalanceBackfill{logger: logger.WithComponent("backfill")}
}

func (s *BalanceBackfill) Extract(b backfill.Batch) (Work, error) {
	tasks := make([]rpc.Task, 0, len(b.Pairs))
	seen := make(extract.PairSet, len(b.Pairs))
	for _, pair := range b.Pairs {
		if seen.Has(pair) {
			continue
		}
		seen.Add(pair)
		tasks = append(tasks, rpc.FTBalanceTask(pair.Object, pair.Subject, nil))
	}
	return Work{Tasks: tasks, Position: "record " + strconv.Itoa(b.Offset)}, nil
}

func (s *BalanceBackfill) Apply(w Work, results []rpc.Result) []store.Mutation {
	muts := make([]store.Mutation, 0, len(results))
	for _, r := range results {
		if r.Value == nil {
			continue
		}
		muts = append(muts, store.Mutation{
			Policy: store.SetIfAbsent,
			Key:    BalancePrefix + ":" + r.Task.TokenID,
			Field:  r.Task.AccountID,
			Value:  r.Value.Balance.String(),
		})
	}
	s.total += len(results)
	s.logger.Info("Processed pairs", logpkg.Int("total", s.total), logpkg.Int("balances", len(muts)))
	return muts
}
