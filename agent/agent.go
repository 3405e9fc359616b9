package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/egilehq/marketing/gateway"
)

const (
	// DefaultContentTemperature is used for generation calls.
	DefaultContentTemperature = 0.7
	// DefaultAnalysisTemperature is used for scoring and analysis calls,
	// lower for consistent judgements.
	DefaultAnalysisTemperature = 0.2
)

// completionClient is the gateway surface the agent needs. Satisfied by
// *gateway.Client.
type completionClient interface {
	ChatCompletion(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// Config holds agent identity and generation tuning.
type Config struct {
	Name                string
	BrandVoice          string
	ContentTemperature  float64
	AnalysisTemperature float64
}

// MarketingAgent generates and refines marketing content through the
// gateway, and manages in-memory campaign records. Safe for concurrent
// use.
type MarketingAgent struct {
	client              completionClient
	name                string
	brandVoice          string
	contentTemperature  float64
	analysisTemperature float64
	logger              zerolog.Logger

	now func() time.Time

	mu        sync.Mutex
	campaigns map[string]*Campaign
}

// NewMarketingAgent creates an agent backed by the given gateway
// client.
func NewMarketingAgent(client completionClient, cfg Config, logger zerolog.Logger) *MarketingAgent {
	if cfg.Name == "" {
		cfg.Name = "marketing-agent"
	}
	if cfg.ContentTemperature == 0 {
		cfg.ContentTemperature = DefaultContentTemperature
	}
	if cfg.AnalysisTemperature == 0 {
		cfg.AnalysisTemperature = DefaultAnalysisTemperature
	}
	return &MarketingAgent{
		client:              client,
		name:                cfg.Name,
		brandVoice:          cfg.BrandVoice,
		contentTemperature:  cfg.ContentTemperature,
		analysisTemperature: cfg.AnalysisTemperature,
		logger:              logger.With().Str("component", "marketing-agent").Logger(),
		now:                 time.Now,
		campaigns:           make(map[string]*Campaign),
	}
}

// Campaign is an in-memory campaign record with generated assets per
// channel and segment. Campaigns live only for the lifetime of the
// agent.
type Campaign struct {
	ID                  string
	Name                string
	Type                string
	TargetSegments      []string
	Channels            []string
	Budget              float64
	StartDate           time.Time
	EndDate             time.Time
	Status              string
	Assets              map[string]map[string]*RefinementResult // channel -> segment -> content
	CreatedAt           time.Time
	CreatedBy           string
	OptimizationHistory []OptimizationRecord
}

// OptimizationRecord captures one optimization pass over a campaign.
type OptimizationRecord struct {
	Timestamp       time.Time
	Performance     map[string]float64
	Recommendations string
}

// CampaignSpec describes a campaign to create.
type CampaignSpec struct {
	Name           string
	Type           string
	TargetSegments []string
	Brief          string
	Budget         float64
	DurationDays   int
	Channels       []string
}

// CreateCampaign generates content for every channel/segment pair and
// returns the assembled campaign record. The record is also retained
// in memory for later optimization.
func (a *MarketingAgent) CreateCampaign(ctx context.Context, spec CampaignSpec) (*Campaign, error) {
	if spec.DurationDays <= 0 {
		spec.DurationDays = 30
	}
	if len(spec.Channels) == 0 {
		spec.Channels = []string{"email", "social_media"}
	}

	a.logger.Info().
		Str("campaign_name", spec.Name).
		Str("campaign_type", spec.Type).
		Strs("channels", spec.Channels).
		Msg("Creating marketing campaign")

	start := a.now()
	c := &Campaign{
		ID:             "camp_" + uuid.NewString(),
		Name:           spec.Name,
		Type:           spec.Type,
		TargetSegments: spec.TargetSegments,
		Channels:       spec.Channels,
		Budget:         spec.Budget,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, spec.DurationDays),
		Status:         "draft",
		Assets:         make(map[string]map[string]*RefinementResult),
		CreatedAt:      start,
		CreatedBy:      a.name,
	}

	for _, channel := range spec.Channels {
		c.Assets[channel] = make(map[string]*RefinementResult)
		for _, segment := range spec.TargetSegments {
			result, err := a.GenerateContent(ctx, ContentSpec{
				Type:     channel,
				Brief:    spec.Brief,
				Audience: segment,
				Tone:     a.brandVoice,
			}, GenerateOptions{})
			if err != nil {
				a.logger.Error().Err(err).
					Str("campaign_name", spec.Name).
					Str("channel", channel).
					Str("segment", segment).
					Msg("Campaign creation failed")
				return nil, &OperationError{Operation: "create_campaign", Cause: err}
			}
			c.Assets[channel][segment] = result
		}
	}

	a.mu.Lock()
	a.campaigns[c.ID] = c
	a.mu.Unlock()

	return c, nil
}

// OptimizationResult is the outcome of a campaign optimization pass.
type OptimizationResult struct {
	CampaignID      string
	Recommendations string
	Performance     map[string]float64
	OptimizedAt     time.Time
}

// OptimizeCampaign analyzes performance data for a previously created
// campaign and returns actionable recommendations. The campaign record
// accumulates the optimization history.
func (a *MarketingAgent) OptimizeCampaign(ctx context.Context, campaignID string, performance map[string]float64) (*OptimizationResult, error) {
	a.mu.Lock()
	c, ok := a.campaigns[campaignID]
	a.mu.Unlock()
	if !ok {
		return nil, &OperationError{
			Operation: "optimize_campaign",
			Cause:     fmt.Errorf("campaign %s not found", campaignID),
		}
	}

	a.logger.Info().
		Str("campaign_id", campaignID).
		Str("campaign_name", c.Name).
		Msg("Optimizing marketing campaign")

	perfJSON, err := json.MarshalIndent(performance, "", "  ")
	if err != nil {
		return nil, &OperationError{Operation: "optimize_campaign", Cause: err}
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following marketing campaign performance data and provide optimization recommendations.\n\n")
	fmt.Fprintf(&sb, "Campaign: %s\n", c.Name)
	fmt.Fprintf(&sb, "Type: %s\n", c.Type)
	fmt.Fprintf(&sb, "Channels: %s\n", strings.Join(c.Channels, ", "))
	fmt.Fprintf(&sb, "Target segments: %s\n\n", strings.Join(c.TargetSegments, ", "))
	fmt.Fprintf(&sb, "Performance data:\n%s\n\n", perfJSON)
	sb.WriteString("Provide specific, actionable recommendations for:\n")
	sb.WriteString("1. Content optimization\n")
	sb.WriteString("2. Audience targeting\n")
	sb.WriteString("3. Channel performance\n")
	sb.WriteString("4. Budget allocation\n")
	sb.WriteString("5. A/B testing opportunities\n")

	t := a.analysisTemperature
	resp, err := a.client.ChatCompletion(ctx, &gateway.Request{
		Messages:    []gateway.Message{gateway.NewTextMessage(gateway.RoleUser, sb.String())},
		System:      "You are a marketing optimization expert. Provide data-driven recommendations.",
		Temperature: &t,
	})
	if err != nil {
		a.logger.Error().Err(err).Str("campaign_id", campaignID).Msg("Campaign optimization failed")
		return nil, &OperationError{Operation: "optimize_campaign", Cause: err}
	}

	record := OptimizationRecord{
		Timestamp:       a.now(),
		Performance:     performance,
		Recommendations: resp.Text,
	}
	a.mu.Lock()
	c.OptimizationHistory = append(c.OptimizationHistory, record)
	a.mu.Unlock()

	return &OptimizationResult{
		CampaignID:      campaignID,
		Recommendations: resp.Text,
		Performance:     performance,
		OptimizedAt:     record.Timestamp,
	}, nil
}

// SentimentAnalysis is the outcome of an audience sentiment pass.
type SentimentAnalysis struct {
	Content       string
	Platform      string
	FeedbackCount int
	Analysis      string
	AnalyzedAt    time.Time
}

// AnalyzeSentiment evaluates audience feedback for a piece of published
// content.
func (a *MarketingAgent) AnalyzeSentiment(ctx context.Context, content string, feedback []string, platform string) (*SentimentAnalysis, error) {
	if platform == "" {
		platform = "general"
	}

	bullets := lo.Map(feedback, func(f string, _ int) string { return "- " + f })

	var sb strings.Builder
	sb.WriteString("Analyze the sentiment and engagement for the following marketing content.\n\n")
	fmt.Fprintf(&sb, "Content: %s\n", content)
	fmt.Fprintf(&sb, "Platform: %s\n\n", platform)
	fmt.Fprintf(&sb, "Audience feedback:\n%s\n\n", strings.Join(bullets, "\n"))
	sb.WriteString("Provide analysis on:\n")
	sb.WriteString("1. Overall sentiment (positive/negative/neutral percentages)\n")
	sb.WriteString("2. Key themes in feedback\n")
	sb.WriteString("3. Engagement quality indicators\n")
	sb.WriteString("4. Suggestions for improvement\n")
	sb.WriteString("5. Content performance score (1-10)\n")

	t := a.analysisTemperature
	resp, err := a.client.ChatCompletion(ctx, &gateway.Request{
		Messages:    []gateway.Message{gateway.NewTextMessage(gateway.RoleUser, sb.String())},
		System:      "You are a social media and content marketing analyst expert.",
		Temperature: &t,
	})
	if err != nil {
		a.logger.Error().Err(err).Str("platform", platform).Msg("Sentiment analysis failed")
		return nil, &OperationError{Operation: "analyze_sentiment", Cause: err}
	}

	return &SentimentAnalysis{
		Content:       content,
		Platform:      platform,
		FeedbackCount: len(feedback),
		Analysis:      resp.Text,
		AnalyzedAt:    a.now(),
	}, nil
}
