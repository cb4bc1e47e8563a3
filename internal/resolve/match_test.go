package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestMatch_ExactAfterNormalization(t *testing.T) {
	got := BestMatch("Léon: The Professional", []string{"Leon - The Professional", "The Professional"})
	assert.Equal(t, "Leon - The Professional", got.Title)
	assert.Equal(t, 100, got.Score)
}

func TestBestMatch_YearSuffix(t *testing.T) {
	// The motivating divergence: upstream sends a year-suffixed title, the
	// library does not.
	got := BestMatch("The Great Escape (2020)", []string{"The Great Escape", "The Long Escape"})
	assert.Equal(t, "The Great Escape", got.Title)
	assert.GreaterOrEqual(t, got.Score, 75, "must clear the default cutoff")
	assert.Less(t, got.Score, 95, "must fail a strict cutoff")
}

func TestBestMatch_Articles(t *testing.T) {
	got := BestMatch("Melancholy of Haruhi Suzumiya", []string{"The Melancholy of Haruhi Suzumiya"})
	assert.Equal(t, 100, got.Score)
}

func TestBestMatch_RejectsUnrelated(t *testing.T) {
	got := BestMatch("Cowboy Bebop", []string{"Initial D", "Slam Dunk"})
	assert.Less(t, got.Score, 75)
}

func TestBestMatch_NoCandidates(t *testing.T) {
	got := BestMatch("Anything", nil)
	assert.Equal(t, Match{}, got)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Great Escape", "great escape"},
		{"Frieren: Beyond Journey's End", "frieren beyond journeys end"},
		{"Re:ZERO", "re zero"},
		{"Dr. Stone", "dr stone"},
		{"Fate/stay night", "fatestay night"},
		{"Spy & Family", "spy and family"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanTitle(tt.in), "cleanTitle(%q)", tt.in)
	}
}
