package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestQuerySpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    QuerySpec
		wantErr bool
	}{
		{
			name: "valid similarity spec",
			spec: QuerySpec{
				Scope:        ScopeGlobal,
				Intent:       IntentSimilar,
				AnchorGameID: 42,
				Constraints: map[Facet]FacetConstraint{
					FacetMechanics: {JaccardMin: floatPtr(0.5)},
				},
			},
		},
		{
			name:    "invalid scope",
			spec:    QuerySpec{Scope: "nearby", Intent: IntentSimilar, AnchorGameID: 1},
			wantErr: true,
		},
		{
			name: "unknown facet",
			spec: QuerySpec{
				Scope:        ScopeGlobal,
				Intent:       IntentSimilar,
				AnchorGameID: 1,
				Constraints: map[Facet]FacetConstraint{
					"themes": {JaccardMax: floatPtr(0.3)},
				},
			},
			wantErr: true,
		},
		{
			name: "jaccard bound out of range",
			spec: QuerySpec{
				Scope:        ScopeGlobal,
				Intent:       IntentSimilar,
				AnchorGameID: 1,
				Constraints: map[Facet]FacetConstraint{
					FacetCategories: {JaccardMax: floatPtr(1.5)},
				},
			},
			wantErr: true,
		},
		{
			name: "min exceeds max",
			spec: QuerySpec{
				Scope:        ScopeGlobal,
				Intent:       IntentSimilar,
				AnchorGameID: 1,
				Constraints: map[Facet]FacetConstraint{
					FacetMechanics: {JaccardMin: floatPtr(0.8), JaccardMax: floatPtr(0.2)},
				},
			},
			wantErr: true,
		},
		{
			name:    "anchor required but missing",
			spec:    QuerySpec{Scope: ScopeGlobal, Intent: IntentSimilar},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRangeFilterContains(t *testing.T) {
	open := RangeFilter{}
	assert.True(t, open.Contains(-100))
	assert.True(t, open.IsZero())

	under60 := RangeFilter{Max: floatPtr(60)}
	assert.True(t, under60.Contains(60))
	assert.False(t, under60.Contains(61))

	between := RangeFilter{Min: floatPtr(2), Max: floatPtr(3)}
	assert.False(t, between.Contains(1.9))
	assert.True(t, between.Contains(2.5))
	assert.False(t, between.Contains(3.1))
}

func TestIntentRequiresAnchor(t *testing.T) {
	assert.True(t, IntentSimilar.RequiresAnchor())
	assert.True(t, IntentDifferentTheme.RequiresAnchor())
	assert.True(t, IntentDoINeed.RequiresAnchor())
	assert.False(t, Intent("browse").RequiresAnchor())
}
