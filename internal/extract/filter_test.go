package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/block"
)

func TestCompileFilterEmpty(t *testing.T) {
	f, err := CompileFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, f.Keep("ft", Pair{Subject: "a", Object: "b"}))
}

func TestCompileFilterRejectsBadExpressions(t *testing.T) {
	_, err := CompileFilter("account.endsWith(")
	assert.Error(t, err)

	_, err = CompileFilter(`account + "x"`)
	assert.Error(t, err)

	_, err = CompileFilter("height > 3")
	assert.Error(t, err)
}

func TestFilterKeep(t *testing.T) {
	f, err := CompileFilter(`category != "st" && !account.endsWith(".lockup.near")`)
	require.NoError(t, err)

	assert.True(t, f.Keep("ft", Pair{Subject: "alice.near", Object: "usdc.near"}))
	assert.False(t, f.Keep("ft", Pair{Subject: "x.lockup.near", Object: "usdc.near"}))
	assert.False(t, f.Keep("st", Pair{Subject: "alice.near", Object: "p.pool.near"}))
}

func TestCompositeAppliesFilter(t *testing.T) {
	r := DefaultRules()
	r.Filter = `account != "bob.near"`
	c, err := NewPairIndex(r)
	require.NoError(t, err)

	out := map[string]PairSet{}
	c.ExtractInto(ftTransfer(block.StatusSuccess), out)
	assert.Equal(t, []Pair{{Subject: "alice.near", Object: "usdc.near"}}, out["ft"].Sorted())
}

func TestRulesValidateFilter(t *testing.T) {
	_, err := ParseRules([]byte("ft: {prefix: f}\nnft: {prefix: n}\nstaking: {prefix: s}\nfilter: \"account ==\"\n"))
	assert.Error(t, err)

	r, err := ParseRules([]byte("ft: {prefix: f}\nnft: {prefix: n}\nstaking: {prefix: s}\nfilter: 'object != \"wrap.near\"'\n"))
	require.NoError(t, err)
	assert.Equal(t, `object != "wrap.near"`, r.Filter)
}
