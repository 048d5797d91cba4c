package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	configx "github.com/tanpawarit/cesto-mcp-server/pkg/config"
	_ "github.com/tanpawarit/cesto-mcp-server/pkg/logger/autoload"
	notifyx "github.com/tanpawarit/cesto-mcp-server/pkg/notify"
	postgresx "github.com/tanpawarit/cesto-mcp-server/pkg/postgres"
	businessx "github.com/tanpawarit/cesto-mcp-server/server/business"
	catalogx "github.com/tanpawarit/cesto-mcp-server/server/catalog"
	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	dispatchx "github.com/tanpawarit/cesto-mcp-server/server/dispatch"
	guidelinex "github.com/tanpawarit/cesto-mcp-server/server/guideline"
	mcpserverx "github.com/tanpawarit/cesto-mcp-server/server/mcpserver"
	memoryx "github.com/tanpawarit/cesto-mcp-server/server/memory"
	metricsx "github.com/tanpawarit/cesto-mcp-server/server/metrics"
	orderx "github.com/tanpawarit/cesto-mcp-server/server/order"
	storex "github.com/tanpawarit/cesto-mcp-server/server/store"
)

type AppConfig struct {
	StoreMode string `envconfig:"STORE_MODE" default:"memory"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")

	st, cleanup := buildStore(ctx, appCfg.StoreMode)
	defer cleanup()

	guidelines := guidelinex.NewStore()

	catalog, err := catalogx.New(st)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build catalog")
	}
	orders, err := orderx.NewManager(st)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build order manager")
	}
	memory, err := memoryx.New(st)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build memory manager")
	}
	business := businessx.MustNew()

	registry := metricsx.NewRegistry()

	dispatcher, err := dispatchx.New(dispatchx.Deps{
		Guidelines: guidelines,
		Catalog:    catalog,
		Orders:     orders,
		Memory:     memory,
		Business:   business,
		Notifier:   buildNotifier(),
		Metrics:    registry,
		Logger:     &log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dispatcher")
	}

	serverCfg := configx.MustNew[mcpserverx.Config]("SERVER")
	srv, err := mcpserverx.NewServer(mcpserverx.NewServerRequest{
		Config:     *serverCfg,
		Dispatcher: dispatcher,
		Health:     st,
		Metrics:    registry,
		Logger:     &log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	log.Info().Str("store", appCfg.StoreMode).Str("listen", serverCfg.Listen).Msg("starting server")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func buildStore(ctx context.Context, mode string) (storex.Store, func()) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "memory":
		m := storex.NewMemory()
		storex.DemoSeed(m)
		return m, func() {}
	case "postgres":
		pgCfg := configx.MustNew[postgresx.Config]("POSTGRES")
		db, err := postgresx.Open(ctx, *pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		pg, err := storex.NewPostgres(db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build postgres store")
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure schema")
		}
		return pg, func() { _ = db.Close() }
	default:
		log.Fatal().Str("store_mode", mode).Msg("unknown store mode")
		return nil, nil
	}
}

func buildNotifier() contractx.Notifier {
	notifyCfg := configx.MustNew[notifyx.Config]("NOTIFY")
	if strings.TrimSpace(notifyCfg.URL) == "" {
		log.Warn().Msg("no support webhook configured, notifications will be dropped")
		return notifyx.Nop{}
	}
	return notifyx.MustNew(*notifyCfg)
}
