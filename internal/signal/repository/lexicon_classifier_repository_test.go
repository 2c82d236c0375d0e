package repository

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconClassifier_Classify(t *testing.T) {
	ctx := context.Background()
	classifier := NewLexiconClassifierRepository()

	t.Run("scores positive vocabulary above zero", func(t *testing.T) {
		result, err := classifier.Classify(ctx, "Bullish on EA, strong quarter and record growth")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Positive(t, result.Score)
		assert.Equal(t, "lexicon", result.Method)
	})

	t.Run("scores negative vocabulary below zero", func(t *testing.T) {
		result, err := classifier.Classify(ctx, "Launch was buggy and unplayable, asking for a refund")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Negative(t, result.Score)
	})

	t.Run("single word matches tanh of its weight", func(t *testing.T) {
		result, err := classifier.Classify(ctx, "bullish")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.InDelta(t, math.Tanh(1.0), result.Score, 1e-9)
	})

	t.Run("negator flips the following word", func(t *testing.T) {
		plain, err := classifier.Classify(ctx, "this game is fun")
		require.NoError(t, err)
		negated, err2 := classifier.Classify(ctx, "this game is not fun")
		require.NoError(t, err2)
		assert.Positive(t, plain.Score)
		assert.Negative(t, negated.Score)
	})

	t.Run("empty text yields no contribution", func(t *testing.T) {
		result, err := classifier.Classify(ctx, "   ")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("text without lexicon words scores neutral", func(t *testing.T) {
		result, err := classifier.Classify(ctx, "the patch notes were published yesterday")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Zero(t, result.Score)
	})

	t.Run("score stays within bounds for loaded text", func(t *testing.T) {
		result, err := classifier.Classify(ctx, "moon rocket surge soar rally bullish buy gains")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.LessOrEqual(t, result.Score, 1.0)
		assert.GreaterOrEqual(t, result.Score, -1.0)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		text := "bearish on the sequel, expecting a flop and layoffs"
		first, err := classifier.Classify(ctx, text)
		require.NoError(t, err)
		second, err := classifier.Classify(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, first.Score, second.Score)
	})
}
