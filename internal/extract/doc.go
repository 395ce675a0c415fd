// Package extract turns decoded blocks into sets of (subject, object) pairs.
//
// Each Extractor is a pure function over a block.Block. Only successful
// receipts count. Token extractors look at function-call method names and
// NEP-297 events; the staking extractor matches pool accounts by suffix.
// Which names count is data (Rules), loaded from YAML. An optional CEL
// expression (Filter) can drop pairs after extraction.
package extract
