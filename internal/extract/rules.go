package extract

import (
	_ "embed"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// TokenRules recognizes token activity for one token standard.
type TokenRules struct {
	// Prefix is the store key category, e.g. "ft" for "ft:<account>".
	Prefix         string   `yaml:"prefix"`
	Methods        []string `yaml:"methods"`
	OwnerEvents    []string `yaml:"owner_events"`
	TransferEvents []string `yaml:"transfer_events"`
	// ExcludeSuffixes drops actions whose target ends with one of these.
	ExcludeSuffixes []string `yaml:"exclude_suffixes"`
}

// StakingRules recognizes staking pool calls by the pool account suffix.
type StakingRules struct {
	Prefix   string   `yaml:"prefix"`
	Suffixes []string `yaml:"suffixes"`
}

// Rules is the full set of extraction tables.
type Rules struct {
	FT      TokenRules   `yaml:"ft"`
	NFT     TokenRules   `yaml:"nft"`
	Staking StakingRules `yaml:"staking"`
	// Filter is an optional CEL expression every pair must satisfy, e.g.
	// `!account.endsWith(".lockup.near")`.
	Filter string `yaml:"filter"`
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(errors.Wrap(err, "extract: embedded rules"))
	}
	return r
}

// ParseRules decodes YAML rule tables and validates them.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, errors.Wrap(err, "extract: parse rules")
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// LoadRules reads rule tables from a YAML file. An empty path yields DefaultRules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, errors.Wrapf(err, "extract: read rules %s", path)
	}
	return ParseRules(data)
}

// Validate checks that every category has a distinct, non-empty prefix.
func (r Rules) Validate() error {
	seen := map[string]string{}
	for name, prefix := range map[string]string{"ft": r.FT.Prefix, "nft": r.NFT.Prefix, "staking": r.Staking.Prefix} {
		if prefix == "" {
			return errors.Newf("extract: %s rules need a prefix", name)
		}
		if other, dup := seen[prefix]; dup {
			return errors.Newf("extract: %s and %s share prefix %q", name, other, prefix)
		}
		seen[prefix] = name
	}
	_, err := CompileFilter(r.Filter)
	return err
}
