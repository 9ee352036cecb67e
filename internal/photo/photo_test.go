package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateAcceptsPNG(t *testing.T) {
	v := Validate(pngBytes(t, 10, 10), "image/png")
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, "image/png", v.ContentType)
	assert.Equal(t, ".png", v.Extension())
}

func TestValidateMismatchWarns(t *testing.T) {
	v := Validate(pngBytes(t, 10, 10), "image/jpeg")
	assert.True(t, v.Valid)
	assert.Len(t, v.Warnings, 1)
}

func TestValidateRejects(t *testing.T) {
	v := Validate([]byte("just some text, not an image"), "image/png")
	assert.False(t, v.Valid)
	assert.Equal(t, []string{ErrInvalidType}, v.Errors)

	big := append(pngBytes(t, 4, 4), make([]byte, MaxUploadBytes)...)
	v = Validate(big, "image/png")
	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors, "File size too large (max 10MB)")
}

func TestAnalyzeQuality(t *testing.T) {
	a := NewAnalyzer(rand.New(rand.NewSource(1)))

	small, err := a.Analyze(pngBytes(t, 100, 700))
	require.NoError(t, err)
	assert.Equal(t, "acceptable", small.ImageQuality)
	assert.Equal(t, "100x700", small.Dimensions)

	large, err := a.Analyze(pngBytes(t, 601, 601))
	require.NoError(t, err)
	assert.Equal(t, "good", large.ImageQuality)
}

func TestAnalyzeRejectsGarbage(t *testing.T) {
	_, err := NewAnalyzer(nil).Analyze([]byte("nope"))
	assert.Error(t, err)
}

func TestScenarioConfidenceRanges(t *testing.T) {
	a := NewAnalyzer(rand.New(rand.NewSource(42)))
	data := pngBytes(t, 8, 8)
	seen := map[Severity]int{}
	for i := 0; i < 500; i++ {
		got, err := a.Analyze(data)
		require.NoError(t, err)
		seen[got.DamageSeverity]++

		var s scenario
		for _, candidate := range scenarios {
			if candidate.severity == got.DamageSeverity {
				s = candidate
			}
		}
		assert.Equal(t, s.damage, got.DamageDetected)
		assert.Equal(t, s.notes, got.AnalysisNotes)
		assert.GreaterOrEqual(t, got.ConfidenceScore, s.minConf)
		assert.LessOrEqual(t, got.ConfidenceScore, s.maxConf)
	}
	for _, sev := range []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityNone} {
		assert.Positive(t, seen[sev], "severity %s never drawn", sev)
	}
	assert.Greater(t, seen[SeverityHigh], seen[SeverityNone])
}
