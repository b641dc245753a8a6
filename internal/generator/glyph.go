package generator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"unicode"

	"github.com/ternarybob/arbor"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// Glyph renders each character of a job's input to a PNG on a square white
// canvas using the Go regular typeface. Whitespace and characters without a
// glyph in the face are reported as benign misses. Rendering is paced by a
// rate limiter so a burst of jobs doesn't monopolize the scheduler.
type Glyph struct {
	face    font.Face
	size    int
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewGlyph parses the embedded typeface and prepares the renderer.
func NewGlyph(cfg *common.GeneratorConfig, logger arbor.ILogger) (*Glyph, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse typeface: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    cfg.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return &Glyph{
		face:    face,
		size:    cfg.ImageSize,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval()), 1),
		logger:  logger,
	}, nil
}

// Generate renders the input character by character, reporting one word
// callback per character in input order and a state update before each.
// Returns promptly with the context error when cancelled mid-run. Empty
// input returns nil with zero callbacks.
func (g *Glyph) Generate(ctx context.Context, input models.JobInput, onState interfaces.StateCallback, onWord interfaces.WordCallback) error {
	runes := []rune(input.InputText)

	for i, r := range runes {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		onState(models.RunningStateGenerating(fmt.Sprintf("Rendering character %d of %d", i+1, len(runes))))

		word, err := models.NewGeneratedWord(string(r), g.render(r))
		if err != nil {
			return fmt.Errorf("invalid character at position %d: %w", i, err)
		}
		onWord(word)
	}

	return nil
}

// render draws one character, returning nil for a benign miss.
func (g *Glyph) render(r rune) []byte {
	if unicode.IsSpace(r) || !unicode.IsGraphic(r) {
		return nil
	}

	glyphBounds, _, ok := g.face.GlyphBounds(r)
	if !ok {
		g.logger.Debug().Str("char", string(r)).Msg("No glyph in face - recording miss")
		return nil
	}

	canvas := image.NewRGBA(image.Rect(0, 0, g.size, g.size))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	// Center the glyph box on the canvas. Min.Y is negative above the
	// baseline, so subtracting it lands the baseline correctly.
	width := glyphBounds.Max.X - glyphBounds.Min.X
	height := glyphBounds.Max.Y - glyphBounds.Min.Y

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.Black,
		Face: g.face,
		Dot: fixed.Point26_6{
			X: (fixed.I(g.size)-width)/2 - glyphBounds.Min.X,
			Y: (fixed.I(g.size)-height)/2 - glyphBounds.Min.Y,
		},
	}
	drawer.DrawString(string(r))

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		g.logger.Warn().Err(err).Str("char", string(r)).Msg("PNG encoding failed - recording miss")
		return nil
	}
	return buf.Bytes()
}
