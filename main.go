package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/capability"
	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/kyc"
	llmx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/llm"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/orchestrator"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/rules"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
	toolx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/tool"
	configx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/pkg/config"
	logx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/pkg/logger"
	openrouterx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/pkg/openrouter"
	qstashx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/pkg/qstash"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/server"
)

type AppConfig struct {
	DatabaseURL        string        `envconfig:"DATABASE_URL" required:"true"`
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8080"`
	TurnTimeout        time.Duration `envconfig:"TURN_TIMEOUT" default:"30s"`
	SanctionWebhookURL string        `envconfig:"SANCTION_WEBHOOK_URL"`
}

// qstashPublisher forwards domain events to a webhook through QStash.
type qstashPublisher struct {
	client      *qstashx.Client
	destination string
}

func (p *qstashPublisher) Publish(ctx context.Context, event string, payload any) error {
	return p.client.PublishJSON(ctx, p.destination, map[string]any{
		"event": event,
		"data":  payload,
	})
}

func main() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	appCfg := configx.MustNew[AppConfig]("VITTAM")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	ctx := context.Background()

	db, err := statex.NewDB(appCfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	sessionStore, err := statex.NewPostgresStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}
	historyStore, err := statex.NewPostgresHistory(db)
	if err != nil {
		log.Fatal().Err(err).Msg("history store init failed")
	}
	customerStore, err := kyc.NewPostgresStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("customer store init failed")
	}
	offerStore, err := rules.NewPostgresOfferStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("offer store init failed")
	}

	kycService, err := kyc.NewService(customerStore)
	if err != nil {
		log.Fatal().Err(err).Msg("kyc service init failed")
	}

	// fail fast on bad credentials before any conversation starts
	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := openrouterx.Ping(pingCtx, openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentTypeMaster))); err != nil {
		cancelPing()
		log.Fatal().Err(err).Msg("openrouter credential check failed")
	}
	cancelPing()

	registry, err := capability.NewRegistry(ctx, *llmCfg, toolx.Deps{
		KYC:    kycService,
		Offers: offerStore,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("capability registry init failed")
	}
	dispatcher, err := capability.NewDispatcher(registry)
	if err != nil {
		log.Fatal().Err(err).Msg("dispatcher init failed")
	}
	master, err := capability.NewMaster(ctx, *llmCfg, dispatcher)
	if err != nil {
		log.Fatal().Err(err).Msg("master agent init failed")
	}

	publisher := newEventPublisher(appCfg.SanctionWebhookURL)

	svc, err := orchestrator.New(sessionStore, historyStore, master, publisher, orchestrator.Config{
		TurnTimeout: appCfg.TurnTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	e := server.New(svc)

	go func() {
		log.Info().Str("addr", appCfg.HTTPAddr).Msg("http server listening")
		if err := e.Start(appCfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

// newEventPublisher wires QStash when both the broker config and a
// destination webhook are present. Without them sanction events are
// only logged, which is fine for local runs.
func newEventPublisher(destination string) orchestrator.EventPublisher {
	if destination == "" {
		log.Warn().Msg("no sanction webhook configured; sanction events will not be published")
		return nil
	}
	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		log.Warn().Err(err).Msg("qstash config incomplete; sanction events will not be published")
		return nil
	}
	client, err := qstashx.NewClient(*qstashCfg)
	if err != nil {
		log.Warn().Err(err).Msg("qstash client init failed; sanction events will not be published")
		return nil
	}
	return &qstashPublisher{client: client, destination: destination}
}
