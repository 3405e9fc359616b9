// Package agent implements the marketing agent: iterative content
// generation with effectiveness scoring, campaign assembly, and
// audience sentiment analysis, all driven through the gateway client.
//
// Content generation runs a bounded refinement loop: each iteration
// generates a draft, asks the model to analyze its effectiveness, and
// parses a numeric score out of the analysis with ExtractScore. Drafts
// that fall short of the quality threshold are regenerated with
// feedback describing the previous attempt.
package agent
