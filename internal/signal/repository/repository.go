package repository

import (
	"context"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
)

// ClassifierRepository scores post text for sentiment. Classify returns a
// score in [-1, 1]; a nil result with a nil error means the text yielded no
// usable score and the post must simply not contribute.
type ClassifierRepository interface {
	Name() string
	Classify(ctx context.Context, text string) (*dto.TextSentiment, error)
}
