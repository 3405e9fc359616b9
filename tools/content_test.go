package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/egilehq/marketing/gateway"
)

type scriptedCompletions struct {
	mu        sync.Mutex
	responses []string
	calls     int
	requests  []*gateway.Request
}

func (s *scriptedCompletions) ChatCompletion(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i >= len(s.responses) {
		return nil, fmt.Errorf("unexpected call %d", i+1)
	}
	return &gateway.Response{Text: s.responses[i]}, nil
}

func newTestGenerator(client completionClient) *Generator {
	g := NewGenerator(client, zerolog.Nop())
	g.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestGenerateAppliesPostProcessing(t *testing.T) {
	client := &scriptedCompletions{responses: []string{"**Big sale** starts *today*!"}}
	g := newTestGenerator(client)

	content, err := g.Generate(context.Background(), ContentRequest{
		Type:     "email",
		Brief:    "Announce the sale",
		Audience: "newsletter subscribers",
		Keywords: []string{"sale"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if content.Content != "Big sale starts today!" {
		t.Errorf("markdown should be stripped for email, got %q", content.Content)
	}
	if content.Tone != "professional" {
		t.Errorf("expected default tone, got %q", content.Tone)
	}
	if content.ID == "" {
		t.Error("expected a content id")
	}
	if content.SEO.Keywords["sale"].Count != 1 {
		t.Errorf("expected sale keyword count 1, got %d", content.SEO.Keywords["sale"].Count)
	}

	if !strings.Contains(client.requests[0].System, "email content") {
		t.Error("system prompt should name the content type")
	}
	if got := client.requests[0].Messages[0].Role; got != gateway.RoleUser {
		t.Errorf("request role = %q, want %q", got, gateway.RoleUser)
	}
	if !strings.Contains(client.requests[0].Messages[0].Content, "Announce the sale") {
		t.Error("user prompt should carry the brief")
	}
}

func TestGenerateABVariantsRotatesTone(t *testing.T) {
	client := &scriptedCompletions{responses: []string{"v1", "v2", "v3"}}
	g := newTestGenerator(client)

	variants, err := g.GenerateABVariants(context.Background(), ContentRequest{
		Type:     "social_media",
		Brief:    "Launch teaser",
		Audience: "followers",
		Tone:     "professional",
	}, 3)
	if err != nil {
		t.Fatalf("GenerateABVariants: %v", err)
	}

	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(variants))
	}
	wantTones := []string{"professional", "conversational", "enthusiastic"}
	for i, v := range variants {
		if v.VariantID != fmt.Sprintf("variant_%d", i+1) {
			t.Errorf("variant %d has id %q", i, v.VariantID)
		}
		if v.Tone != wantTones[i] {
			t.Errorf("variant %d tone = %q, want %q", i, v.Tone, wantTones[i])
		}
	}
}

func TestGenerateABVariantsDefaultCount(t *testing.T) {
	client := &scriptedCompletions{responses: []string{"v1", "v2"}}
	g := newTestGenerator(client)

	variants, err := g.GenerateABVariants(context.Background(), ContentRequest{
		Type:  "email",
		Brief: "Teaser",
	}, 0)
	if err != nil {
		t.Fatalf("GenerateABVariants: %v", err)
	}
	if len(variants) != 2 {
		t.Errorf("expected 2 variants by default, got %d", len(variants))
	}
}

func TestOptimize(t *testing.T) {
	client := &scriptedCompletions{responses: []string{"Tighter copy with a clear CTA."}}
	g := newTestGenerator(client)

	out, err := g.Optimize(context.Background(),
		"Our product is quite good and you might like it.",
		"ad_copy", "smb owners",
		[]string{"higher conversion", "urgency"})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if out != "Tighter copy with a clear CTA." {
		t.Errorf("unexpected output %q", out)
	}

	req := client.requests[0]
	if req.Messages[0].Role != gateway.RoleUser {
		t.Errorf("request role = %q, want %q", req.Messages[0].Role, gateway.RoleUser)
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, "higher conversion, urgency") {
		t.Error("prompt should list the optimization goals")
	}
	if !strings.Contains(prompt, "quite good") {
		t.Error("prompt should include the original content")
	}
	if req.Temperature == nil || *req.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", req.Temperature)
	}
}

func TestPostProcess(t *testing.T) {
	t.Run("keeps markdown for blog posts", func(t *testing.T) {
		got := PostProcess("**Header** body", "blog_post", "medium")
		if got != "**Header** body" {
			t.Errorf("blog content should keep markdown, got %q", got)
		}
	})

	t.Run("truncates overlong short content", func(t *testing.T) {
		sentence := strings.Repeat("word ", 60)
		content := strings.TrimSpace(sentence) + ". " +
			strings.TrimSpace(sentence) + ". " +
			strings.TrimSpace(sentence) + ". " +
			"This sentence should be dropped."
		got := PostProcess(content, "blog_post", "short")
		if strings.Contains(got, "dropped") {
			t.Error("fourth sentence should be truncated")
		}
		if !strings.HasSuffix(got, ".") {
			t.Errorf("truncated content should end with a period, got %q", got)
		}
	})

	t.Run("leaves short content under the limit alone", func(t *testing.T) {
		got := PostProcess("Brief and punchy. Call now.", "ad_copy", "short")
		if got != "Brief and punchy. Call now." {
			t.Errorf("unexpected change: %q", got)
		}
	})
}

func TestSEOMetrics(t *testing.T) {
	content := "Analytics for growth. Our analytics dashboard makes analytics easy."
	report := SEOMetrics(content, []string{"analytics", "dashboard", "missing"})

	if report.WordCount != 9 {
		t.Errorf("expected 9 words, got %d", report.WordCount)
	}
	if report.Keywords["analytics"].Count != 3 {
		t.Errorf("expected 3 analytics hits, got %d", report.Keywords["analytics"].Count)
	}
	if report.Keywords["dashboard"].Count != 1 {
		t.Errorf("expected 1 dashboard hit, got %d", report.Keywords["dashboard"].Count)
	}
	if report.Keywords["missing"].Count != 0 {
		t.Errorf("expected 0 missing hits, got %d", report.Keywords["missing"].Count)
	}
	if report.Score != 40 {
		t.Errorf("expected score 40, got %d", report.Score)
	}

	density := report.Keywords["analytics"].Density
	if density <= 0.3 || density >= 0.4 {
		t.Errorf("unexpected analytics density %v", density)
	}
}

func TestSEOMetricsEmptyContent(t *testing.T) {
	report := SEOMetrics("", []string{"kw"})
	if report.WordCount != 0 {
		t.Errorf("expected 0 words, got %d", report.WordCount)
	}
	if report.Keywords["kw"].Density != 0 {
		t.Error("density should be 0 for empty content")
	}
	if report.Score != 0 {
		t.Errorf("expected score 0, got %d", report.Score)
	}
}
