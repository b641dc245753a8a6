package generator

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func newTestGlyph(t *testing.T) *Glyph {
	t.Helper()
	cfg := &common.GeneratorConfig{
		CharInterval: "1ms",
		ImageSize:    64,
		FontSize:     48,
	}
	g, err := NewGlyph(cfg, arbor.NewLogger())
	require.NoError(t, err)
	return g
}

func collect(t *testing.T, g *Glyph, text string) ([]models.GeneratedWord, []models.RunningState, error) {
	t.Helper()
	var words []models.GeneratedWord
	var states []models.RunningState

	err := g.Generate(context.Background(), models.JobInput{InputText: text},
		func(state models.RunningState) { states = append(states, state) },
		func(word models.GeneratedWord) { words = append(words, word) },
	)
	return words, states, err
}

func TestGlyph_Generate(t *testing.T) {
	g := newTestGlyph(t)

	t.Run("renders each character as PNG in input order", func(t *testing.T) {
		words, states, err := collect(t, g, "ab")
		require.NoError(t, err)

		require.Len(t, words, 2)
		assert.Equal(t, "a", words[0].Word)
		assert.Equal(t, "b", words[1].Word)
		for _, w := range words {
			require.True(t, w.Success())
			assert.True(t, bytes.HasPrefix(w.Image, pngMagic), "rendered bytes must be PNG")
		}

		require.NotEmpty(t, states)
		for _, s := range states {
			assert.Equal(t, "GENERATING", s.Name)
		}
	})

	t.Run("whitespace is a benign miss", func(t *testing.T) {
		words, _, err := collect(t, g, "a b")
		require.NoError(t, err)

		require.Len(t, words, 3)
		assert.True(t, words[0].Success())
		assert.False(t, words[1].Success(), "whitespace yields no image")
		assert.True(t, words[2].Success())
	})

	t.Run("empty input resolves immediately with zero callbacks", func(t *testing.T) {
		words, states, err := collect(t, g, "")
		require.NoError(t, err)
		assert.Empty(t, words)
		assert.Empty(t, states)
	})

	t.Run("control characters are misses, not errors", func(t *testing.T) {
		words, _, err := collect(t, g, "\x01")
		require.NoError(t, err)
		require.Len(t, words, 1)
		assert.False(t, words[0].Success())
	})
}

func TestGlyph_Cancellation(t *testing.T) {
	cfg := &common.GeneratorConfig{
		CharInterval: "50ms",
		ImageSize:    64,
		FontSize:     48,
	}
	g, err := NewGlyph(cfg, arbor.NewLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	var words int
	done := make(chan error, 1)
	go func() {
		done <- g.Generate(ctx, models.JobInput{InputText: "abcdefgh"},
			func(models.RunningState) {},
			func(models.GeneratedWord) { words++ },
		)
	}()

	cancel()
	err = <-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, words, 8, "cancellation unwinds before all characters render")
}
