// Package caption cleans raw vision-language captions and renders them into
// complaint narratives.
package caption

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Prompt is the conditioning text fed to the captioner. Generated captions
// usually echo it, which Clean strips.
const Prompt = "a photograph of"

// promptEchoes are removed from anywhere in the caption, in this order.
var promptEchoes = []string{
	"a photograph of ",
	"an image of ",
	"a photo of ",
}

// Templates are the complaint narratives; %s is replaced by the cleaned caption.
var Templates = [...]string{
	"I would like to report %s in this area. This issue is causing inconvenience to the public. Please take necessary action.",
	"I noticed %s here. It looks like a hazard and needs immediate attention from the authorities.",
	"Reporting a case of %s. This has been persistent for a while and requires a fix.",
	"There is %s at this location. It is disrupting the neighborhood. Please investigate.",
	"Urgent attention required for %s. Residents are facing difficulties due to this.",
	"I am writing to bring to your attention %s. Please resolve this matter as soon as possible.",
}

// RandomSource picks template indices. IntN must return a value in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// DefaultRandom is backed by math/rand/v2's global generator.
type DefaultRandom struct{}

func (DefaultRandom) IntN(n int) int { return rand.IntN(n) }

// Fixed always picks the same template. Indices out of range wrap.
type Fixed int

func (f Fixed) IntN(n int) int {
	i := int(f) % n
	if i < 0 {
		i += n
	}
	return i
}

// Clean lower-cases the caption and removes prompt echoes.
func Clean(raw string) string {
	c := strings.ToLower(raw)
	for _, p := range promptEchoes {
		c = strings.ReplaceAll(c, p, "")
	}
	return c
}

// Complaint renders a cleaned caption into a randomly chosen template.
func Complaint(cleaned string, rnd RandomSource) string {
	if rnd == nil {
		rnd = DefaultRandom{}
	}
	return fmt.Sprintf(Templates[rnd.IntN(len(Templates))], cleaned)
}

// VideoDescription renders a cleaned frame caption as an incident description.
func VideoDescription(cleaned string) string {
	return "Video analysis shows: " + cleaned + ". Please investigate."
}
