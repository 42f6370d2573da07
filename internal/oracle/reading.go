package oracle

import (
	"fmt"
	"strings"

	"github.com/talgya/cosmic-lottery/internal/sim"
)

const readingSystemPrompt = `You are the voice of a cosmic lottery. A handful of numbered particles has just been drawn from a swirling swarm, their sum reduced to a numerological digit. Write a short, warm, slightly mystical reading of the result for the audience: two or three sentences, no lists, no headers. Speak of the numbers as if the cosmos chose them. Do not mention simulations, software, or randomness algorithms.`

// Reading asks the oracle for flavor text about a finished draw. The
// text is display-only: a failure here surfaces a message and nothing
// else.
func Reading(c *Client, result sim.DrawResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Drawn numbers, in order: %v\n", result.SelectedIDs)
	fmt.Fprintf(&b, "Sum: %d, reduced to %d.\n", result.Sum, result.Digit)
	fmt.Fprintf(&b, "Traditional meaning: %s\n", result.Meaning)
	b.WriteString("\nGive the reading.")

	text, err := c.complete(readingSystemPrompt, b.String(), 300)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
