// Package cmd builds the indexer's cobra command tree.
package cmd
