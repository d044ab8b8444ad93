package artifacts

import (
	"fmt"
	"strconv"
	"strings"
)

// F0MethodMangioCrepe is the only pitch-detection algorithm whose hop length
// affects output bytes, so it is the only one whose hop length appears in
// cache keys.
const F0MethodMangioCrepe = "mangio-crepe"

// ConvertKey is the structured cache key for a voice-conversion artifact.
// Every field participates in the encoded filename.
type ConvertKey struct {
	Model        string
	Pitch        int
	IndexRate    float64
	FilterRadius int
	RMSMixRate   float64
	Protect      float64
	F0Method     string
	HopLength    int
}

// Encode serializes the key into the filename fragment appended to the song
// base name. Field order is fixed; floats render with minimal digits so the
// same value always produces the same text.
func (k ConvertKey) Encode() string {
	var b strings.Builder
	b.WriteString(k.Model)
	b.WriteString("_p")
	b.WriteString(strconv.Itoa(k.Pitch))
	b.WriteString("_i")
	b.WriteString(formatFloat(k.IndexRate))
	b.WriteString("_fr")
	b.WriteString(strconv.Itoa(k.FilterRadius))
	b.WriteString("_rms")
	b.WriteString(formatFloat(k.RMSMixRate))
	b.WriteString("_pro")
	b.WriteString(formatFloat(k.Protect))
	b.WriteString("_")
	b.WriteString(k.F0Method)
	if k.F0Method == F0MethodMangioCrepe {
		b.WriteString("_")
		b.WriteString(strconv.Itoa(k.HopLength))
	}
	return b.String()
}

func (k ConvertKey) String() string {
	return fmt.Sprintf("convert(%s)", k.Encode())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
