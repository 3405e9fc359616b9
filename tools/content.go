package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/egilehq/marketing/gateway"
)

const (
	// DefaultGenerateTemperature is used for draft generation.
	DefaultGenerateTemperature = 0.7
	// optimizeTemperature is used for goal-driven rewrites.
	optimizeTemperature = 0.5
)

// completionClient is the gateway surface the generator needs.
// Satisfied by *gateway.Client.
type completionClient interface {
	ChatCompletion(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// ContentRequest describes a single piece of content to generate.
type ContentRequest struct {
	Type            string // email, social_media, blog_post, ad_copy, landing_page
	Brief           string
	Audience        string
	Tone            string // defaults to "professional"
	Length          string // short, medium, long
	Keywords        []string
	BrandGuidelines string
}

// GeneratedContent is one generated draft plus its SEO metrics.
type GeneratedContent struct {
	ID          string
	VariantID   string // set only for A/B variants, e.g. "variant_1"
	Type        string
	Tone        string
	Content     string
	SEO         SEOReport
	GeneratedAt time.Time
}

// KeywordMetric is the per-keyword portion of an SEO report.
type KeywordMetric struct {
	Count   int
	Density float64
}

// SEOReport holds keyword-based content metrics. All values are
// computed locally without a gateway call.
type SEOReport struct {
	WordCount int
	Keywords  map[string]KeywordMetric
	Score     int // 0-100, from total keyword occurrences
}

// Generator produces marketing content drafts through the gateway:
// single drafts, A/B variant sets, and goal-driven rewrites of
// existing copy.
type Generator struct {
	client      completionClient
	temperature float64
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGenerator creates a content generator backed by the given gateway
// client.
func NewGenerator(client completionClient, logger zerolog.Logger) *Generator {
	return &Generator{
		client:      client,
		temperature: DefaultGenerateTemperature,
		logger:      logger.With().Str("component", "content-generator").Logger(),
		now:         time.Now,
	}
}

// Generate produces a single post-processed draft for the request.
func (g *Generator) Generate(ctx context.Context, req ContentRequest) (*GeneratedContent, error) {
	if req.Tone == "" {
		req.Tone = "professional"
	}

	t := g.temperature
	resp, err := g.client.ChatCompletion(ctx, &gateway.Request{
		Messages:    []gateway.Message{gateway.NewTextMessage(gateway.RoleUser, buildUserPrompt(req))},
		System:      buildSystemPrompt(req),
		Temperature: &t,
	})
	if err != nil {
		return nil, fmt.Errorf("content generation failed: %w", err)
	}

	content := PostProcess(resp.Text, req.Type, req.Length)

	g.logger.Info().
		Str("content_type", req.Type).
		Int("content_length", len(content)).
		Msg("Content generated")

	return &GeneratedContent{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Tone:        req.Tone,
		Content:     content,
		SEO:         SEOMetrics(content, req.Keywords),
		GeneratedAt: g.now(),
	}, nil
}

// GenerateABVariants produces count variants of the request, rotating
// the tone per variant so the set covers distinct voices.
func (g *Generator) GenerateABVariants(ctx context.Context, req ContentRequest, count int) ([]*GeneratedContent, error) {
	if count <= 0 {
		count = 2
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}

	variants := make([]*GeneratedContent, 0, count)
	for i := 0; i < count; i++ {
		vr := req
		vr.Tone = variantTone(req.Tone, i)
		content, err := g.Generate(ctx, vr)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i+1, err)
		}
		content.VariantID = fmt.Sprintf("variant_%d", i+1)
		variants = append(variants, content)
	}

	g.logger.Info().Int("variant_count", len(variants)).Msg("Generated A/B variants")
	return variants, nil
}

// Optimize rewrites existing content toward the given goals while
// keeping the core message.
func (g *Generator) Optimize(ctx context.Context, content, contentType, audience string, goals []string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Optimize the following %s content for %s with these goals: %s\n\n",
		contentType, audience, strings.Join(goals, ", "))
	fmt.Fprintf(&sb, "Original content:\n%s\n\n", content)
	sb.WriteString("Provide the optimized version that better achieves the specified goals while maintaining the core message.")

	t := optimizeTemperature
	resp, err := g.client.ChatCompletion(ctx, &gateway.Request{
		Messages:    []gateway.Message{gateway.NewTextMessage(gateway.RoleUser, sb.String())},
		System:      "You are a marketing optimization expert.",
		Temperature: &t,
	})
	if err != nil {
		return "", fmt.Errorf("content optimization failed: %w", err)
	}

	g.logger.Info().Str("content_type", contentType).Msg("Content optimized")
	return resp.Text, nil
}

// variantTone rotates the tone per variant index. Index 0 keeps the
// base tone.
func variantTone(base string, index int) string {
	switch index {
	case 1:
		if base == "professional" {
			return "conversational"
		}
		return "professional"
	case 2:
		if base != "enthusiastic" {
			return "enthusiastic"
		}
		return "friendly"
	default:
		return base
	}
}

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
)

// PostProcess cleans up a generated draft: markdown emphasis is
// stripped for email and social content, and short-form drafts that
// overrun 150 words are cut back to their first three sentences.
func PostProcess(content, contentType, length string) string {
	if contentType == "email" || contentType == "social_media" {
		content = boldPattern.ReplaceAllString(content, "$1")
		content = italicPattern.ReplaceAllString(content, "$1")
	}

	if length == "short" && len(strings.Fields(content)) > 150 {
		sentences := strings.SplitN(content, ". ", 4)
		if len(sentences) > 3 {
			content = strings.Join(sentences[:3], ". ") + "."
		}
	}

	return strings.TrimSpace(content)
}

// SEOMetrics computes word count, per-keyword occurrence counts and
// densities, and a 0-100 score from total keyword occurrences.
func SEOMetrics(content string, keywords []string) SEOReport {
	wordCount := len(strings.Fields(content))
	lowered := strings.ToLower(content)

	metrics := make(map[string]KeywordMetric, len(keywords))
	for _, kw := range keywords {
		count := strings.Count(lowered, strings.ToLower(kw))
		density := 0.0
		if wordCount > 0 {
			density = float64(count) / float64(wordCount)
		}
		metrics[kw] = KeywordMetric{Count: count, Density: density}
	}

	total := lo.SumBy(lo.Values(metrics), func(m KeywordMetric) int { return m.Count })

	return SEOReport{
		WordCount: wordCount,
		Keywords:  metrics,
		Score:     min(100, total*10),
	}
}

func buildSystemPrompt(req ContentRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert marketing copywriter specializing in %s content.\n\n", displayType(req.Type))
	fmt.Fprintf(&sb, "Your task is to create compelling, conversion-focused %s content that:\n", displayType(req.Type))
	fmt.Fprintf(&sb, "- Resonates with the target audience: %s\n", req.Audience)
	fmt.Fprintf(&sb, "- Maintains a %s tone of voice\n", req.Tone)
	sb.WriteString("- Includes clear calls-to-action when appropriate\n")
	sb.WriteString("- Is optimized for engagement and conversion\n")
	if req.BrandGuidelines != "" {
		fmt.Fprintf(&sb, "\nBrand guidelines:\n%s\n", req.BrandGuidelines)
	}
	sb.WriteString("\nFocus on creating content that drives action and achieves marketing objectives.")
	return sb.String()
}

var lengthGuidance = map[string]string{
	"short":  "Keep it concise and punchy (50-150 words)",
	"medium": "Provide good detail and engagement (150-400 words)",
	"long":   "Create comprehensive, detailed content (400+ words)",
}

func buildUserPrompt(req ContentRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Content brief: %s\n\n", req.Brief)
	fmt.Fprintf(&sb, "Target audience: %s\n", req.Audience)
	fmt.Fprintf(&sb, "Tone: %s\n", req.Tone)
	if g, ok := lengthGuidance[req.Length]; ok {
		fmt.Fprintf(&sb, "Length: %s - %s\n", req.Length, g)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&sb, "\nSEO keywords to naturally incorporate: %s\n", strings.Join(req.Keywords, ", "))
	}
	fmt.Fprintf(&sb, "\nPlease create engaging, high-quality %s content that meets these requirements and drives the desired action.", displayType(req.Type))
	return sb.String()
}

// displayType turns a content type keyword into prompt-friendly text.
func displayType(t string) string {
	if t == "" {
		return "marketing"
	}
	return strings.ReplaceAll(t, "_", " ")
}
