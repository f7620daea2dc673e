package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/embeddings/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"resume-assist/internal/config"
	"resume-assist/internal/models"
)

// NewProvider creates the langchaingo embedder selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Str("provider", cfg.Provider).Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating embedder")

	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.ProviderBedrock:
		return NewBedrockEmbedder(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfig, cfg.Provider)
	}
}

// NewOllamaEmbedder embeds through an Ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama client: %w", models.ErrEmbeddingBackend, err)
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embedder: %w", models.ErrEmbeddingBackend, err)
	}
	return e, nil
}

// NewOpenAIEmbedder embeds through an OpenAI compatible API. Local servers
// that do not check the token get "none".
func NewOpenAIEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	token := strings.TrimPrefix(cfg.Key, "Bearer ")
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: openai client: %w", models.ErrEmbeddingBackend, err)
	}
	e, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: openai embedder: %w", models.ErrEmbeddingBackend, err)
	}
	return e, nil
}

// NewBedrockEmbedder embeds through AWS Bedrock in cfg.Region, using the
// default AWS credential chain. BaseURL overrides the runtime endpoint.
func NewBedrockEmbedder(ctx context.Context, cfg *config.LLMConfig) (embeddings.Embedder, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: aws config: %w", models.ErrEmbeddingBackend, err)
	}
	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.BaseURL != "" {
			o.BaseEndpoint = aws.String(cfg.BaseURL)
		}
	})
	e, err := bedrock.NewBedrock(bedrock.WithModel(cfg.Model), bedrock.WithClient(client))
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock embedder: %w", models.ErrEmbeddingBackend, err)
	}
	return e, nil
}
