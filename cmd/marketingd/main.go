package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/egilehq/marketing/agent"
	"github.com/egilehq/marketing/config"
	mktlogger "github.com/egilehq/marketing/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line flags
	var (
		configPath  = flag.String("config", config.GetConfigPath(), "Path to config file")
		logFile     = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty      = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		contentType = flag.String("type", "email", "Content type: email, social_media, blog_post, ad_copy, landing_page")
		brief       = flag.String("brief", "", "Content brief (required)")
		audience    = flag.String("audience", "", "Target audience")
		tone        = flag.String("tone", "", "Tone of voice. Defaults to the configured brand voice")
		length      = flag.String("length", "medium", "Content length: short, medium, long")
		keywords    = flag.String("keywords", "", "Comma-separated SEO keywords")
		iterations  = flag.Int("iterations", 0, "Max refinement iterations. 0 uses the configured value")
		threshold   = flag.Float64("threshold", 0, "Quality threshold (1-10). 0 uses the configured value")
		once        = flag.Bool("once", false, "Generate a single draft without iterative improvement")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}
	if *brief == "" {
		return fmt.Errorf("--brief is required")
	}

	logger, err := mktlogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info().
		Str("config", *configPath).
		Str("content_type", *contentType).
		Msg("marketingd starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := config.NewGatewayClient(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}
	defer client.Close()

	mktAgent := agent.NewMarketingAgent(client, agent.Config{
		Name:                cfg.Agent.Name,
		BrandVoice:          cfg.Agent.BrandVoice,
		ContentTemperature:  cfg.Agent.ContentTemperature,
		AnalysisTemperature: cfg.Agent.AnalysisTemperature,
	}, logger)

	maxIterations := cfg.Agent.MaxIterations
	if *iterations > 0 {
		maxIterations = *iterations
	}
	qualityThreshold := cfg.Agent.QualityThreshold
	if *threshold > 0 {
		qualityThreshold = *threshold
	}

	var kws []string
	if *keywords != "" {
		for _, kw := range strings.Split(*keywords, ",") {
			kws = append(kws, strings.TrimSpace(kw))
		}
	}

	result, err := mktAgent.GenerateContent(ctx, agent.ContentSpec{
		Type:     *contentType,
		Brief:    *brief,
		Audience: *audience,
		Tone:     *tone,
		Length:   *length,
		Keywords: kws,
	}, agent.GenerateOptions{
		MaxIterations:      maxIterations,
		QualityThreshold:   qualityThreshold,
		DisableImprovement: *once,
	})
	if err != nil {
		return fmt.Errorf("content generation failed: %w", err)
	}

	fmt.Println(result.Content)
	fmt.Println()
	fmt.Printf("Score: %.1f/10 (threshold %.1f, met: %v)\n", result.Score, qualityThreshold, result.ThresholdMet)
	for _, it := range result.Iterations {
		fmt.Printf("  iteration %d: %.1f\n", it.Index, it.Score)
	}

	return nil
}
