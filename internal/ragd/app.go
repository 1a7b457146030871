// Package ragd assembles and runs the retrieval service.
package ragd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vektor-io/ragd/internal/pkg/preprocess"
	"github.com/vektor-io/ragd/internal/ragd/biz"
	"github.com/vektor-io/ragd/internal/ragd/handler"
	"github.com/vektor-io/ragd/internal/ragd/router"
	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/component/milvus"
	"github.com/vektor-io/ragd/pkg/llm"
	"github.com/vektor-io/ragd/pkg/tokenizer"

	// Register providers.
	_ "github.com/vektor-io/ragd/pkg/llm/ollama"
)

const (
	appName        = "ragd"
	appDescription = `Retrieval service.

ragd ingests documents into per-owner vector collections and serves
hybrid semantic retrieval and grounded question answering over them:
  - Document chunking along structure with token-window fallback
  - Batch embedding via a configurable model provider
  - Vector plus keyword search with weighted score fusion
  - Reranking, score thresholds and answer generation`
)

// NewApp creates the root command.
func NewApp() *cobra.Command {
	opts := NewOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          appName,
		Short:        "Retrieval service",
		Long:         appDescription,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(configFile, cmd, opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return Run(opts)
		},
	}

	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file.")
	return cmd
}

// loadConfig merges the config file, environment and flags into opts, in
// ascending precedence.
func loadConfig(configFile string, cmd *cobra.Command, opts *Options) error {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ragd")
	}

	v.SetEnvPrefix("RAGD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// Run starts the service and blocks until shutdown.
func Run(opts *Options) error {
	l, err := logger.New(opts.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(l)
	logger.Infof("Starting %s...", appName)

	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to initialize milvus: %w", err)
	}
	defer milvusClient.Close(context.Background())
	logger.Info("Milvus client initialized")

	vectors := store.NewMilvusStore(milvusClient)

	var keywords store.KeywordSearcher = store.NoopKeywordSearcher{}
	if opts.Retrieval.KeywordEnabled {
		keywords = store.NewBleveKeywordSearcher(opts.Retrieval.KeywordIndexPath)
	}
	defer keywords.Close()

	embedProvider, err := llm.NewProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	chatProvider, err := llm.NewProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}

	var embedding llm.EmbeddingProvider = embedProvider
	if opts.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.Cache.Addr,
			Password: opts.Cache.Password,
			DB:       opts.Cache.DB,
		})
		defer rdb.Close()
		embedding = llm.NewCachedEmbeddingProvider(embedProvider, rdb, opts.Cache.TTL)
		logger.Info("Embedding cache enabled")
	}

	tok, err := tokenizer.New(tokenizer.DefaultEncoding)
	if err != nil {
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	embedder, err := biz.NewBatchEmbedder(embedding, opts.Retrieval.EmbedBatchSize)
	if err != nil {
		return err
	}
	defer embedder.Release()

	chunker := biz.NewChunker(tok, opts.Retrieval.ChunkSize, opts.Retrieval.ChunkOverlap)
	reranker := biz.NewEmbeddingReranker(embedding, opts.Embedding.Model)

	indexer := biz.NewIndexer(vectors, keywords, preprocess.New(), chunker, embedder, biz.IndexerConfig{
		DefaultEmbedModel: opts.Embedding.Model,
		ApprovedModels:    opts.Retrieval.ApprovedModels,
		MinChunkSize:      opts.Retrieval.MinChunkSize,
	})
	retriever := biz.NewRetriever(vectors, keywords, embedder, reranker, biz.RetrieverConfig{
		DefaultEmbedModel: opts.Embedding.Model,
		VectorWeight:      opts.Retrieval.VectorWeight,
		KeywordWeight:     opts.Retrieval.KeywordWeight,
		DefaultLimit:      opts.Retrieval.TopK,
	})
	generator := biz.NewGenerator(chatProvider).WithSystemPrompt(opts.Retrieval.SystemPrompt)

	service := biz.NewService(indexer, retriever, generator, vectors, keywords)
	logger.Info("Retrieval service initialized")

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, handler.New(service))

	return serve(engine, opts.Server)
}

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully.
func serve(engine *gin.Engine, opts *ServerOptions) error {
	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
