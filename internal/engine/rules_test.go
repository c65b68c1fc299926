package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletoplab/gamescout/pkg/types"
)

func TestDefaultRuleTableCompiles(t *testing.T) {
	table := DefaultRuleTable()
	assert.Greater(t, table.Len(), 0)
}

func TestRuleTableFirstMatchWinsPerField(t *testing.T) {
	cfg := DefaultConfig()
	table, err := NewRuleTable([]Rule{
		{Name: "specific", Pattern: `very close`, Intent: "similar", Polarity: PolaritySimilar, Strict: true, Facets: []string{"mechanics"}},
		{Name: "general", Pattern: `close`, Intent: "different", Polarity: PolarityDifferent, Facets: []string{"mechanics", "categories"}},
	})
	require.NoError(t, err)

	m := table.match("very close to that one", &cfg)

	// Intent comes from the first matching rule.
	assert.Equal(t, types.Intent("similar"), m.intent)

	// Mechanics was claimed by the first rule; categories falls
	// through to the second.
	mech := m.constraints[types.FacetMechanics]
	require.NotNil(t, mech.JaccardMin)
	assert.Equal(t, cfg.StrictJaccardMin, *mech.JaccardMin)

	cat := m.constraints[types.FacetCategories]
	require.NotNil(t, cat.JaccardMax)
	assert.Equal(t, cfg.DefaultJaccardMax, *cat.JaccardMax)

	assert.Equal(t, []string{"specific", "general"}, m.matched)
}

func TestRuleTableCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	table := DefaultRuleTable()

	m := table.match("SOMETHING SIMILAR TO CATAN", &cfg)
	assert.Equal(t, types.IntentSimilar, m.intent)
}

func TestNewRuleTableValidation(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"missing name", Rule{Pattern: "x"}},
		{"missing pattern", Rule{Name: "r"}},
		{"bad regex", Rule{Name: "r", Pattern: "(unclosed"}},
		{"bad polarity", Rule{Name: "r", Pattern: "x", Polarity: "sideways", Facets: []string{"mechanics"}}},
		{"polarity without facets", Rule{Name: "r", Pattern: "x", Polarity: PolaritySimilar}},
		{"unknown facet", Rule{Name: "r", Pattern: "x", Polarity: PolaritySimilar, Facets: []string{"vibes"}}},
		{"bad scope", Rule{Name: "r", Pattern: "x", Scope: "galaxy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleTable([]Rule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestLoadRuleTableFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	doc := `
rules:
  - name: coop_only
    pattern: 'co-?op'
    intent: similar
    polarity: similar
    facets: [mechanics]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	table, err := LoadRuleTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	cfg := DefaultConfig()
	m := table.match("any good coop games?", &cfg)
	assert.Equal(t, types.Intent("similar"), m.intent)
}

func TestLoadRuleTableErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRuleTable(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules: []"), 0o644))
		_, err := LoadRuleTable(path)
		assert.Error(t, err)
	})
}
