package extract

import (
	"strings"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/block"
)

// Extractor derives the pairs implicated by one block. Implementations are pure.
type Extractor interface {
	Extract(b block.Block) PairSet
}

// Token extracts (account, token contract) pairs for one token standard.
type Token struct {
	methods        map[string]struct{}
	ownerEvents    map[string]struct{}
	transferEvents map[string]struct{}
	exclude        []string
}

// NewToken builds a token extractor from its rule table.
func NewToken(r TokenRules) *Token {
	return &Token{
		methods:        toSet(r.Methods),
		ownerEvents:    toSet(r.OwnerEvents),
		transferEvents: toSet(r.TransferEvents),
		exclude:        r.ExcludeSuffixes,
	}
}

func (t *Token) Extract(b block.Block) PairSet {
	pairs := PairSet{}
	for _, a := range b.Actions {
		if a.Status != block.StatusSuccess {
			continue
		}
		tokenID := a.AccountID
		if hasAnySuffix(tokenID, t.exclude) {
			continue
		}
		if _, ok := t.methods[a.MethodName]; !ok || a.MethodName == "" {
			continue
		}
		pairs.Add(Pair{Subject: a.PredecessorID, Object: tokenID})
		if a.ArgsReceiverID != "" {
			pairs.Add(Pair{Subject: a.ArgsReceiverID, Object: tokenID})
		}
	}
	for _, e := range b.Events {
		if e.Status != block.StatusSuccess || e.Event == "" {
			continue
		}
		tokenID := e.AccountID
		if _, ok := t.ownerEvents[e.Event]; ok {
			if e.DataOwnerID != "" {
				pairs.Add(Pair{Subject: e.DataOwnerID, Object: tokenID})
			}
		} else if _, ok := t.transferEvents[e.Event]; ok {
			if e.DataNewOwnerID != "" {
				pairs.Add(Pair{Subject: e.DataNewOwnerID, Object: tokenID})
			}
			if e.DataOldOwnerID != "" {
				pairs.Add(Pair{Subject: e.DataOldOwnerID, Object: tokenID})
			}
		}
	}
	return pairs
}

// Staking extracts (delegator, pool) pairs from calls into staking pools.
type Staking struct {
	suffixes []string
}

// NewStaking builds a staking extractor.
func NewStaking(r StakingRules) *Staking {
	return &Staking{suffixes: r.Suffixes}
}

func (s *Staking) Extract(b block.Block) PairSet {
	pairs := PairSet{}
	for _, a := range b.Actions {
		if a.Status != block.StatusSuccess || a.Action != block.ActionFunctionCall {
			continue
		}
		if hasAnySuffix(a.AccountID, s.suffixes) {
			pairs.Add(Pair{Subject: a.PredecessorID, Object: a.AccountID})
		}
	}
	return pairs
}

// Category ties an extractor to the store key prefix its pairs are written under.
type Category struct {
	Prefix    string
	Extractor Extractor
}

// Composite runs several categories over the same block.
type Composite struct {
	Categories []Category
	// Filter, when set, drops pairs before they are merged.
	Filter *Filter
}

// NewPairIndex returns the ft/nft/staking composite for rules.
func NewPairIndex(r Rules) (Composite, error) {
	f, err := CompileFilter(r.Filter)
	if err != nil {
		return Composite{}, err
	}
	return Composite{
		Categories: []Category{
			{Prefix: r.FT.Prefix, Extractor: NewToken(r.FT)},
			{Prefix: r.NFT.Prefix, Extractor: NewToken(r.NFT)},
			{Prefix: r.Staking.Prefix, Extractor: NewStaking(r.Staking)},
		},
		Filter: f,
	}, nil
}

// ExtractInto merges the pairs of b into out, keyed by category prefix.
func (c Composite) ExtractInto(b block.Block, out map[string]PairSet) {
	for _, cat := range c.Categories {
		set, ok := out[cat.Prefix]
		if !ok {
			set = PairSet{}
			out[cat.Prefix] = set
		}
		found := cat.Extractor.Extract(b)
		c.Filter.Apply(cat.Prefix, found)
		set.Merge(found)
	}
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
