// Package explain asks a language model for word explanations and
// suggestions.
package explain

import (
	"context"
	"errors"
)

// FallbackText is shown in place of an explanation the model failed to give.
const FallbackText = "⚠️ Could not get an explanation right now. Please try again in a minute."

var ErrEmptyAnswer = errors.New("model returned no usable answer")

// Explanation is a headword together with its Telegram HTML description.
type Explanation struct {
	// Word is the headword in dictionary form, spelling corrected.
	Word string
	HTML string
}

type Explainer interface {
	// Explain describes word, normalising it to its dictionary form.
	Explain(ctx context.Context, word string) (Explanation, error)
	// Suggest proposes a new word in the style of the known ones.
	Suggest(ctx context.Context, known []string) (Explanation, error)
}
