package repository

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
)

// lexiconClassifierName tags signals produced by the lexicon path.
const lexiconClassifierName = "lexicon"

// Word weights for the lexicon scorer. Mix of general finance vocabulary
// and the gaming-community slang common in the subreddits the collector
// watches.
var lexiconWeights = map[string]float64{
	// positive finance
	"bullish": 1.0, "buy": 0.6, "undervalued": 0.8, "upgrade": 0.7,
	"beat": 0.6, "beats": 0.6, "growth": 0.5, "profit": 0.5,
	"profitable": 0.6, "rally": 0.7, "surge": 0.7, "soar": 0.8,
	"outperform": 0.8, "strong": 0.5, "record": 0.4, "gain": 0.5,
	"gains": 0.5, "moon": 0.9, "rocket": 0.8, "calls": 0.4,
	// positive product/community
	"great": 0.6, "love": 0.7, "amazing": 0.8, "awesome": 0.8,
	"fun": 0.5, "excited": 0.6, "hyped": 0.7, "masterpiece": 0.9,
	"goty": 0.8, "banger": 0.7, "polished": 0.5, "recommend": 0.6,
	// negative finance
	"bearish": -1.0, "sell": -0.6, "overvalued": -0.8, "downgrade": -0.7,
	"miss": -0.6, "misses": -0.6, "loss": -0.5, "losses": -0.5,
	"crash": -0.9, "plunge": -0.8, "tank": -0.7, "tanks": -0.7,
	"underperform": -0.8, "weak": -0.5, "lawsuit": -0.6, "layoffs": -0.7,
	"bankrupt": -1.0, "bankruptcy": -1.0, "puts": -0.4, "dump": -0.7,
	// negative product/community
	"terrible": -0.8, "awful": -0.8, "hate": -0.7, "broken": -0.6,
	"buggy": -0.7, "refund": -0.7, "flop": -0.8, "disappointing": -0.7,
	"disappointed": -0.7, "scam": -0.9, "garbage": -0.8, "boring": -0.5,
	"unplayable": -0.9, "microtransactions": -0.4, "delayed": -0.4,
}

// Negators flip the sign of the word that follows them.
var lexiconNegators = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "don't": true,
	"isnt": true, "isn't": true, "wasnt": true, "wasn't": true,
	"cant": true, "can't": true, "won't": true, "wont": true,
}

// lexiconClassifierRepository is a deterministic, dependency-free
// implementation of ClassifierRepository. It is the fallback when no neural
// provider is configured and the default for reproducible backtests.
type lexiconClassifierRepository struct{}

// NewLexiconClassifierRepository creates a new instance of lexiconClassifierRepository.
func NewLexiconClassifierRepository() ClassifierRepository {
	return &lexiconClassifierRepository{}
}

func (r *lexiconClassifierRepository) Name() string {
	return lexiconClassifierName
}

// Classify scores text by summing lexicon word weights, dampened by text
// length. Empty text yields no result; text without sentiment-bearing
// words scores neutral (0) and still contributes to the aggregate.
func (r *lexiconClassifierRepository) Classify(_ context.Context, text string) (*dto.TextSentiment, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var sum float64
	matched := 0
	negate := false
	for _, token := range tokens {
		if lexiconNegators[token] {
			negate = true
			continue
		}
		weight, ok := lexiconWeights[token]
		if ok {
			if negate {
				weight = -weight
			}
			sum += weight
			matched++
		}
		negate = false
	}

	score := 0.0
	if matched > 0 {
		// tanh keeps heavily loaded posts bounded without a hard clip.
		score = math.Tanh(sum / math.Sqrt(float64(matched)))
	}

	return &dto.TextSentiment{
		Score:  score,
		Method: lexiconClassifierName,
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
