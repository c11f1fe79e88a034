package matcher

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScoreViewTiers(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		name  string
		views int64
		want  int
	}{
		{"under a thousand", 500, 0},
		{"thousands", 5_000, 10},
		{"tens of thousands", 50_000, 20},
		{"hundreds of thousands", 500_000, 30},
		{"millions", 2_000_000, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.views, 0, "ch", nil))
		})
	}
}

func TestScoreLikeRatio(t *testing.T) {
	s := NewScorer(nil)

	// 100k views puts us at 30; ratio points stack on top.
	assert.Equal(t, 30+20, s.Score(100_000, 5_000, "ch", nil)) // 5%
	assert.Equal(t, 30+12, s.Score(100_000, 2_000, "ch", nil)) // 2%
	assert.Equal(t, 30+6, s.Score(100_000, 1_000, "ch", nil))  // 1%
	assert.Equal(t, 30, s.Score(100_000, 100, "ch", nil))      // 0.1%
}

func TestScoreMatchSpecificity(t *testing.T) {
	s := NewScorer(nil)

	early := s.Score(0, 0, "ch", &Match{PatternIndex: 0})
	late := s.Score(0, 0, "ch", &Match{PatternIndex: 30})

	assert.Equal(t, 20, early)
	assert.Equal(t, 5, late) // floor
	assert.Greater(t, early, late)
}

func TestScoreOpponentBonus(t *testing.T) {
	s := NewScorer(nil)
	opponent := uuid.New()

	solo := s.Score(10_000, 0, "ch", &Match{PatternIndex: 0})
	headToHead := s.Score(10_000, 0, "ch", &Match{PatternIndex: 0, OpponentBandID: &opponent})

	assert.Equal(t, solo+10, headToHead)
}

func TestScoreTrustedChannelFloor(t *testing.T) {
	s := NewScorer([]string{"trusted-channel"})

	// A zero-signal video from a trusted channel still lands on the floor.
	assert.Equal(t, 50, s.Score(0, 0, "trusted-channel", nil))
	assert.Equal(t, 0, s.Score(0, 0, "other-channel", nil))
}

func TestScoreTrustedChannelBonusAboveFloor(t *testing.T) {
	s := NewScorer([]string{"trusted-channel"})

	untrusted := s.Score(1_000_000, 50_000, "other", &Match{PatternIndex: 0})
	trusted := s.Score(1_000_000, 50_000, "trusted-channel", &Match{PatternIndex: 0})

	assert.Equal(t, untrusted+10, trusted)
}

func TestScoreClampedToHundred(t *testing.T) {
	s := NewScorer([]string{"trusted-channel"})
	opponent := uuid.New()

	score := s.Score(5_000_000, 500_000, "trusted-channel", &Match{PatternIndex: 0, OpponentBandID: &opponent})
	assert.Equal(t, 100, score)
}
