package agent

import (
	"fmt"
	"strings"

	"github.com/egilehq/marketing/gateway"
)

// lengthGuidance maps length keywords onto word-count hints included
// in the generation prompt.
var lengthGuidance = map[string]string{
	"short":  "50-150 words",
	"medium": "150-400 words",
	"long":   "400+ words",
}

const generationSystemPrompt = `You are an expert marketing copywriter. You write compelling, audience-targeted marketing content that drives engagement and conversions. Respond with the content only, no preamble or commentary.`

const scoringSystemPrompt = `You are a marketing effectiveness analyst. Evaluate the given content for engagement potential, audience fit, clarity, and call-to-action strength. End your analysis with a line of the form "Score: N/10".`

func buildGenerationRequest(spec ContentSpec, brief string, temperature float64) *gateway.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create %s content for the following brief.\n\n", displayType(spec.Type))
	fmt.Fprintf(&sb, "Brief: %s\n", brief)
	if spec.Audience != "" {
		fmt.Fprintf(&sb, "Target audience: %s\n", spec.Audience)
	}
	if spec.Tone != "" {
		fmt.Fprintf(&sb, "Tone: %s\n", spec.Tone)
	}
	if g, ok := lengthGuidance[spec.Length]; ok {
		fmt.Fprintf(&sb, "Length: %s\n", g)
	}
	if len(spec.Keywords) > 0 {
		fmt.Fprintf(&sb, "Incorporate these keywords naturally: %s\n", strings.Join(spec.Keywords, ", "))
	}

	system := generationSystemPrompt
	if spec.BrandGuidelines != "" {
		system += "\n\nBrand guidelines:\n" + spec.BrandGuidelines
	}

	t := temperature
	return &gateway.Request{
		Messages:    []gateway.Message{gateway.NewTextMessage(gateway.RoleUser, sb.String())},
		System:      system,
		Temperature: &t,
	}
}

func buildScoringRequest(spec ContentSpec, content string, temperature float64) *gateway.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the effectiveness of this %s content", displayType(spec.Type))
	if spec.Audience != "" {
		fmt.Fprintf(&sb, " for the audience: %s", spec.Audience)
	}
	sb.WriteString(".\n\n")
	sb.WriteString(content)

	t := temperature
	return &gateway.Request{
		Messages:    []gateway.Message{gateway.NewTextMessage(gateway.RoleUser, sb.String())},
		System:      scoringSystemPrompt,
		Temperature: &t,
	}
}

// improvementFeedback builds the feedback block appended to the brief
// from the second iteration onward.
func improvementFeedback(previous string, score float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A previous attempt scored %.1f/10:\n\n%s\n\n", score, previous)
	sb.WriteString("Improve on it. Aim for:\n")
	sb.WriteString("- higher engagement\n")
	sb.WriteString("- better audience alignment\n")
	sb.WriteString("- a stronger call to action\n")
	sb.WriteString("- improved clarity\n")
	return sb.String()
}

// displayType turns a content type keyword into prompt-friendly text,
// e.g. "social_media" becomes "social media".
func displayType(t string) string {
	if t == "" {
		return "marketing"
	}
	return strings.ReplaceAll(t, "_", " ")
}
