package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"therapy-companion/handler"
	"therapy-companion/internal/config"
	"therapy-companion/internal/integrations/gemini"
	"therapy-companion/internal/integrations/openai"
	"therapy-companion/internal/integrations/paramstore"
	"therapy-companion/internal/integrations/retry"
	"therapy-companion/internal/logging"
	"therapy-companion/internal/prompt"
	"therapy-companion/internal/repository"
	"therapy-companion/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	// ---- Prompts ----
	store, err := prompt.LoadStore(cfg.PromptOverridesPath)
	if err != nil {
		logger.Fatal("failed to load prompt store", zap.Error(err))
	}
	assembler, err := prompt.NewAssembler(store)
	if err != nil {
		logger.Fatal("failed to create assembler", zap.Error(err))
	}

	// ---- AWS SDK config, only when SSM or DynamoDB is in play ----
	var awsCfg aws.Config
	if cfg.NeedsKeyFromParamStore() || cfg.StateTable != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Fatal("failed to load AWS config", zap.Error(err))
		}
	}

	// ---- Clients ----
	completer, err := newCompleter(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Fatal("failed to create completion client", zap.Error(err), zap.String("provider", string(cfg.Provider)))
	}

	opts := []usecase.ChatOption{usecase.WithLogger(logger.Named("chat"))}
	if cfg.StateTable != "" {
		turnLog, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
		if err != nil {
			logger.Fatal("failed to create turn log", zap.Error(err))
		}
		opts = append(opts, usecase.WithTurnLogger(turnLog))
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(assembler, completer, opts...)
	if err != nil {
		logger.Fatal("failed to create chat service", zap.Error(err))
	}

	h, err := handler.NewHandler(chatService,
		handler.WithLogger(logger.Named("http")),
		handler.WithReplayTTL(cfg.IdempotencyTTL),
	)
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	logger.Info("starting",
		zap.String("provider", string(cfg.Provider)),
		zap.Bool("turn_log", cfg.StateTable != ""),
		zap.Bool("prompt_overrides", cfg.PromptOverridesPath != ""),
	)
	lambda.Start(h.Handle)
}

func newCompleter(ctx context.Context, cfg config.Config, awsCfg aws.Config, logger *zap.Logger) (usecase.Completer, error) {
	policy := retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay}

	if cfg.Provider == config.ProviderGemini {
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel,
			gemini.WithRetryPolicy(policy),
			gemini.WithSampling(cfg.MaxOutputTokens, cfg.Temperature),
			gemini.WithLogger(logger.Named("gemini")),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	key := openai.StaticKey(cfg.OpenAIAPIKey)
	if cfg.NeedsKeyFromParamStore() {
		ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, err
		}
		name := cfg.OpenAIAPIKeyParam
		key = func(ctx context.Context) (string, error) {
			return paramstore.ResolveToken(ctx, ps, name)
		}
	}
	c, err := openai.NewClient(key, cfg.OpenAIModel,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		openai.WithRetryPolicy(policy),
		openai.WithSampling(cfg.MaxOutputTokens, cfg.Temperature),
		openai.WithLogger(logger.Named("openai")),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
