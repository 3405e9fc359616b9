package agent

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMaxIterations bounds the improve-and-regenerate loop.
	DefaultMaxIterations = 3
	// DefaultQualityThreshold is the score at which the loop stops
	// early.
	DefaultQualityThreshold = 7.0
)

// ContentSpec describes the content to generate.
type ContentSpec struct {
	Type            string   // email, social_media, blog_post, ad_copy, landing_page
	Brief           string   // content brief and requirements
	Audience        string   // target audience description
	Tone            string   // desired tone of voice; defaults to the agent's brand voice
	Length          string   // short, medium, long
	Keywords        []string // SEO keywords to incorporate
	BrandGuidelines string   // free-form brand guidance appended to the system prompt
}

// GenerateOptions tune the refinement loop.
type GenerateOptions struct {
	MaxIterations    int
	QualityThreshold float64
	// DisableImprovement forces exactly one generate-and-score cycle
	// regardless of the other parameters.
	DisableImprovement bool
}

// Iteration is one generate-and-score cycle. Iterations are appended in
// order and indexed from 1.
type Iteration struct {
	Index       int
	Content     string
	Score       float64
	Analysis    string // raw effectiveness analysis the score was parsed from
	GeneratedAt time.Time
}

// RefinementResult is the outcome of a refinement run. Content and
// Score come from the best iteration observed, not necessarily the
// last one.
type RefinementResult struct {
	Content      string
	Score        float64
	Iterations   []Iteration
	ThresholdMet bool
}

// OperationError is returned when a refinement run aborts. It wraps the
// underlying failure and carries the partial iteration history
// accumulated before the failure, for diagnostics.
type OperationError struct {
	Operation  string
	Iterations []Iteration
	Cause      error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed after %d iterations: %v", e.Operation, len(e.Iterations), e.Cause)
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Context returns structured fields for logging and diagnostics.
func (e *OperationError) Context() map[string]interface{} {
	return map[string]interface{}{
		"operation":            e.Operation,
		"completed_iterations": len(e.Iterations),
	}
}

// GenerateContent generates marketing content with bounded iterative
// improvement: generate, score, and regenerate with feedback until the
// quality threshold is met or the iteration budget runs out. The best
// content observed across all iterations is returned, with the full
// iteration history.
//
// Any generation or scoring failure aborts the run; the caller receives
// an *OperationError carrying the partial history.
func (a *MarketingAgent) GenerateContent(ctx context.Context, spec ContentSpec, opts GenerateOptions) (*RefinementResult, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.QualityThreshold == 0 {
		opts.QualityThreshold = DefaultQualityThreshold
	}
	if spec.Tone == "" {
		spec.Tone = a.brandVoice
	}

	a.logger.Info().
		Str("content_type", spec.Type).
		Str("audience", spec.Audience).
		Int("max_iterations", opts.MaxIterations).
		Float64("quality_threshold", opts.QualityThreshold).
		Msg("Generating marketing content")

	var history []Iteration
	var best *Iteration

	for i := 1; i <= opts.MaxIterations; i++ {
		brief := spec.Brief
		if best != nil {
			brief += "\n" + improvementFeedback(best.Content, best.Score)
		}

		content, err := a.generate(ctx, spec, brief)
		if err != nil {
			return nil, &OperationError{Operation: "generate_content", Iterations: history, Cause: err}
		}

		analysis, err := a.scoreContent(ctx, spec, content)
		if err != nil {
			return nil, &OperationError{Operation: "generate_content", Iterations: history, Cause: err}
		}
		score := ExtractScore(analysis, nil)

		it := Iteration{
			Index:       i,
			Content:     content,
			Score:       score,
			Analysis:    analysis,
			GeneratedAt: a.now(),
		}
		history = append(history, it)

		a.logger.Info().
			Int("iteration", i).
			Float64("score", score).
			Int("content_length", len(content)).
			Msg("Content iteration completed")

		// Strictly greater: ties keep the earlier iteration.
		if best == nil || score > best.Score {
			b := it
			best = &b
		}

		if opts.DisableImprovement {
			break
		}
		if score >= opts.QualityThreshold {
			a.logger.Info().
				Float64("score", score).
				Float64("threshold", opts.QualityThreshold).
				Int("iterations_used", i).
				Msg("Quality threshold reached")
			break
		}
	}

	return &RefinementResult{
		Content:      best.Content,
		Score:        best.Score,
		Iterations:   history,
		ThresholdMet: best.Score >= opts.QualityThreshold,
	}, nil
}

// generate calls the gateway with the content-generation prompts.
func (a *MarketingAgent) generate(ctx context.Context, spec ContentSpec, brief string) (string, error) {
	resp, err := a.client.ChatCompletion(ctx, buildGenerationRequest(spec, brief, a.contentTemperature))
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// scoreContent asks the gateway for an effectiveness analysis of the
// generated content, at a lower temperature for consistent scoring.
func (a *MarketingAgent) scoreContent(ctx context.Context, spec ContentSpec, content string) (string, error) {
	resp, err := a.client.ChatCompletion(ctx, buildScoringRequest(spec, content, a.analysisTemperature))
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
