package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureNames = map[int64]string{
	1: "Brass: Birmingham",
	2: "Brass: Lancashire",
	3: "Great Western Trail",
	4: "Scythe",
	5: "Azul",
	6: "7 Wonders",
}

func TestMatchGameName(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantID  int64
		wantOK  bool
	}{
		{"full name with punctuation", "games like Brass: Birmingham please", 1, true},
		{"lowercase", "closest to brass birmingham", 1, true},
		{"single-word title", "anything like scythe", 4, true},
		{"no match", "recommend me a party game", 0, false},
		{"unknown title", "similar to Monopoly", 0, false},
		{"digits in title", "what's like 7 Wonders?", 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchGameName(tt.message, fixtureNames, 0.6)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.gameID)
			}
		})
	}
}

func TestMatchGameNamePrefersLongerName(t *testing.T) {
	names := map[int64]string{
		10: "Brass",
		11: "Brass: Birmingham",
	}
	got, ok := matchGameName("i loved brass birmingham", names, 0.6)
	require.True(t, ok)
	assert.Equal(t, int64(11), got.gameID)
}

func TestMatchGameNameDeterministicOnTies(t *testing.T) {
	names := map[int64]string{
		21: "Root",
		20: "ROOT",
	}
	for i := 0; i < 10; i++ {
		got, ok := matchGameName("something like root", names, 0.6)
		require.True(t, ok)
		assert.Equal(t, int64(20), got.gameID)
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "brass birmingham", normalizeText("  Brass:  Birmingham! "))
	assert.Equal(t, "7 wonders", normalizeText("7 Wonders"))
	assert.Equal(t, "", normalizeText("!!! ???"))
}
