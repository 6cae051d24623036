package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	composerx "github.com/tanpawarit/slide-copilot/agent/composer"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	llmx "github.com/tanpawarit/slide-copilot/agent/llm"
	promptx "github.com/tanpawarit/slide-copilot/agent/prompt"
	readablex "github.com/tanpawarit/slide-copilot/agent/readable"
	researchx "github.com/tanpawarit/slide-copilot/agent/research"
	sessionx "github.com/tanpawarit/slide-copilot/agent/session"
	configx "github.com/tanpawarit/slide-copilot/pkg/config"
	httpapix "github.com/tanpawarit/slide-copilot/pkg/httpapi"
	_ "github.com/tanpawarit/slide-copilot/pkg/logger/autoload"
	metricsx "github.com/tanpawarit/slide-copilot/pkg/metrics"
	openrouterx "github.com/tanpawarit/slide-copilot/pkg/openrouter"
)

const (
	sinkNone    = "none"
	sinkRedis   = "redis"
	sinkUpstash = "upstash"
)

type AppConfig struct {
	ListenAddr      string        `envconfig:"LISTEN_ADDR" split_words:"true" default:":8080"`
	ResearchTimeout time.Duration `envconfig:"RESEARCH_TIMEOUT" split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
	ContextSink     string        `envconfig:"CONTEXT_SINK" split_words:"true" default:"none"`
}

func (c *AppConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.ContextSink)) {
	case sinkNone, sinkRedis, sinkUpstash:
	default:
		return fmt.Errorf("%w: unsupported context sink %q", contractx.ErrValidation, c.ContextSink)
	}
	if c.ResearchTimeout <= 0 {
		return fmt.Errorf("%w: research timeout must be positive", contractx.ErrValidation)
	}
	return nil
}

func main() {
	appCfg := configx.MustNew[AppConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("LLM")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid prompt set")
	}

	researchCfg := llmCfg.OpenRouterFor(llmx.RoleResearch)
	openRouterClient := openrouterx.NewClient(researchCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}
	researcher, err := researchx.NewOpenAIResearcher(openRouterClient, researchCfg.Model, prompts.Research, researchCfg.Temperature)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize researcher")
	}

	composeCfg := llmCfg.OpenRouterFor(llmx.RoleCompose)
	composeModel, err := composeCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize compose model")
	}
	composer, err := composerx.NewLLMComposer(ctx, composeModel, prompts.Compose)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize composer")
	}

	sink, closeSink := mustContextSink(appCfg.ContextSink)
	defer closeSink()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metricsx.New(reg)

	manager := httpapix.NewManager(func(ctx context.Context, id string) (*sessionx.Session, error) {
		opts := []sessionx.Option{
			sessionx.WithMetrics(metrics),
			sessionx.WithResearchTimeout(appCfg.ResearchTimeout),
		}
		if sink != nil {
			opts = append(opts, sessionx.WithSink(sink))
		}
		return sessionx.New(ctx, id, sessionx.Deps{Researcher: researcher, Composer: composer}, opts...)
	})

	server := &http.Server{
		Addr: appCfg.ListenAddr,
		Handler: httpapix.NewHandler(manager,
			httpapix.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", appCfg.ListenAddr).
			Str("research_model", researchCfg.Model).
			Str("compose_model", composeCfg.Model).
			Str("context_sink", appCfg.ContextSink).
			Msg("slide copilot listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := manager.CloseAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close sessions")
	}
}

// mustContextSink builds the readable-context mirror named by kind.
// A nil sink keeps context in memory only.
func mustContextSink(kind string) (readablex.Sink, func()) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case sinkRedis:
		redisCfg := configx.MustNew[readablex.RedisConfig]("REDIS")
		sink := readablex.NewRedisSink(*redisCfg)
		return sink, func() {
			if err := sink.Close(); err != nil {
				log.Error().Err(err).Msg("close redis sink")
			}
		}
	case sinkUpstash:
		upstashCfg := configx.MustNew[readablex.UpstashConfig]("UPSTASH")
		sink, err := readablex.NewUpstashSink(*upstashCfg, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize upstash sink")
		}
		return sink, func() {}
	default:
		return nil, func() {}
	}
}
