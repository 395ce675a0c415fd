// Package pipeline drives batches from a producer through extraction,
// optional enrichment and an atomic commit.
//
// Two strategies exist. PairIndex records account/token presence from block
// batches and checkpoints every commit. BalanceBackfill enriches exported
// pairs with their balances and has no checkpoint.
package pipeline
