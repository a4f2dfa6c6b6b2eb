// Package match scores search result titles against catalog items.
package match

import (
	"regexp"
	"strings"

	"github.com/law-makers/pricewatch/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultThreshold is the minimum score a candidate needs to be accepted
	DefaultThreshold = 0.2

	// modelOverlapFloor is the least score a candidate gets once any model token agrees
	modelOverlapFloor = 0.4
	// keyTermFloor is the least score when a shared word is a key vendor or series term
	keyTermFloor = 0.3
)

var (
	parentheticalPattern = regexp.MustCompile(`\(.*?\)`)
	modelTokenPattern    = regexp.MustCompile(`[a-z0-9]+-?[a-z0-9]+`)

	marketingTerms = []string{"gaming", "rgb"}

	keyTerms = map[string]bool{
		"amd": true, "intel": true, "nvidia": true,
		"rtx": true, "rx": true, "radeon": true,
		"geforce": true, "ryzen": true, "core": true,
	}
)

// Matcher selects the candidate that best represents a catalog item
type Matcher struct {
	threshold float64
}

// New creates a Matcher. A negative threshold selects DefaultThreshold;
// zero accepts the best-scoring candidate whatever its score.
func New(threshold float64) *Matcher {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the acceptance threshold in use
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scores every candidate against target and returns the best one if
// its score reaches the threshold. Ties keep the earlier candidate.
func (m *Matcher) Match(candidates []models.Candidate, target string) (models.MatchResult, bool) {
	return Best(candidates, target, m.threshold)
}

// Best is Match with an explicit threshold
func Best(candidates []models.Candidate, target string, threshold float64) (models.MatchResult, bool) {
	var (
		best      models.MatchResult
		bestScore = -1.0
		found     bool
	)

	for _, c := range candidates {
		score := Score(c.Title, target)

		log.Debug().
			Str("title", c.Title).
			Float64("score", score).
			Msg("Scored candidate")

		if score > bestScore {
			bestScore = score
			best = models.MatchResult{
				Title:    c.Title,
				Score:    score,
				RawPrice: c.RawPrice,
				URL:      c.RawLink,
			}
			found = true
		}
	}

	if !found || bestScore < threshold {
		return models.MatchResult{}, false
	}
	return best, true
}

// Score returns the similarity of a and b in [0,1].
//
// When both strings carry model-like tokens and any of them agree, the
// token overlap decides, floored at 0.4. Otherwise the Jaccard index of the
// word sets is used, floored at 0.3 when a key vendor term is shared.
func Score(a, b string) float64 {
	a = Normalize(a)
	b = Normalize(b)

	modelsA := tokenSet(modelTokenPattern.FindAllString(a, -1))
	modelsB := tokenSet(modelTokenPattern.FindAllString(b, -1))
	if len(modelsA) > 0 && len(modelsB) > 0 {
		overlap := float64(len(intersection(modelsA, modelsB))) / float64(max(len(modelsA), len(modelsB)))
		if overlap > 0 {
			return max(overlap, modelOverlapFloor)
		}
	}

	wordsA := tokenSet(strings.Fields(a))
	wordsB := tokenSet(strings.Fields(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	common := intersection(wordsA, wordsB)
	union := len(wordsA) + len(wordsB) - len(common)
	score := float64(len(common)) / float64(union)

	for w := range common {
		if keyTerms[w] {
			return max(score, keyTermFloor)
		}
	}
	return score
}

// Normalize lower-cases s, drops parenthesised text and marketing terms and
// collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	s = parentheticalPattern.ReplaceAllString(s, "")
	for _, term := range marketingTerms {
		s = strings.ReplaceAll(s, term, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func intersection(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
