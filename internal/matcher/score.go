package matcher

// Scorer produces a bounded 0-100 quality score from engagement signals.
// The score is additive: view volume, like-to-view ratio, title-pattern
// specificity, and a floor for configured trusted channels.
type Scorer struct {
	trusted map[string]struct{}
}

// NewScorer builds a scorer with an allow-list of known-good channel IDs.
func NewScorer(trustedChannels []string) *Scorer {
	trusted := make(map[string]struct{}, len(trustedChannels))
	for _, ch := range trustedChannels {
		trusted[ch] = struct{}{}
	}
	return &Scorer{trusted: trusted}
}

// Trusted channels never score below this.
const trustedFloor = 50

// Score computes the quality score for a video. match may be nil for
// unmatched videos; they can still carry a score for later re-matching runs.
func (s *Scorer) Score(viewCount, likeCount int64, channelID string, match *Match) int {
	score := viewPoints(viewCount) + ratioPoints(viewCount, likeCount)

	if match != nil {
		score += specificityPoints(match.PatternIndex)
		if match.OpponentBandID != nil {
			// Head-to-head halftime footage is the catalog's core content.
			score += 10
		}
	}

	if _, ok := s.trusted[channelID]; ok {
		score += 10
		if score < trustedFloor {
			score = trustedFloor
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func viewPoints(views int64) int {
	switch {
	case views >= 1_000_000:
		return 40
	case views >= 100_000:
		return 30
	case views >= 10_000:
		return 20
	case views >= 1_000:
		return 10
	default:
		return 0
	}
}

func ratioPoints(views, likes int64) int {
	if views <= 0 || likes <= 0 {
		return 0
	}
	ratio := float64(likes) / float64(views)
	switch {
	case ratio >= 0.05:
		return 20
	case ratio >= 0.02:
		return 12
	case ratio >= 0.01:
		return 6
	default:
		return 0
	}
}

// Earlier pattern-table entries are more specific and earn more points.
func specificityPoints(patternIndex int) int {
	points := 20 - patternIndex
	if points < 5 {
		points = 5
	}
	return points
}
