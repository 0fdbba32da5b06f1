// Command meowvolt runs the Meower <-> Revolt bridge daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/floofteam/meowvolt/internal/bridge"
	"github.com/floofteam/meowvolt/internal/config"
	"github.com/floofteam/meowvolt/internal/db"
	"github.com/floofteam/meowvolt/internal/logger"
	"github.com/floofteam/meowvolt/internal/meower"
	"github.com/floofteam/meowvolt/internal/revolt"
	"github.com/floofteam/meowvolt/internal/server"
	"github.com/floofteam/meowvolt/internal/store"
	"github.com/floofteam/meowvolt/internal/version"
)

func provideConfig() (config.Config, error) {
	// Secrets may come from a local .env, matching the deployment layout.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	logger.L.Info("meowvolt starting", slog.String("version", version.String()))
	return logger.L
}

func provideDBPool(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.MigrateUp(log, cfg.Postgres); err != nil {
		return nil, err
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func provideMeowerClient(log *slog.Logger, cfg config.Config) *meower.Client {
	return meower.NewClient(log, cfg.Meower)
}

func provideRevoltClient(log *slog.Logger, cfg config.Config) *revolt.Client {
	return revolt.NewClient(log, cfg.Revolt)
}

func provideLinkStore(log *slog.Logger, pool *pgxpool.Pool) *store.LinkStore {
	return store.NewLinkStore(log, pool)
}

func provideChatStore(log *slog.Logger, pool *pgxpool.Pool) *store.ChatStore {
	return store.NewChatStore(log, pool)
}

func provideBridge(log *slog.Logger, cfg config.Config, mc *meower.Client, rc *revolt.Client, links *store.LinkStore, chats *store.ChatStore) *bridge.Service {
	return bridge.NewService(log, mc, rc, links, chats, cfg.Bridge, cfg.Meower.OpsChat)
}

func provideServer(log *slog.Logger, cfg config.Config, stats *statsProvider) *server.Server {
	return server.New(log, cfg.Server.Addr, stats)
}

func provideStats(links *store.LinkStore, chats *store.ChatStore, svc *bridge.Service) *statsProvider {
	return &statsProvider{links: links, chats: chats, bridge: svc}
}

// statsProvider aggregates store counts and live handshake state for the
// ops server.
type statsProvider struct {
	links  *store.LinkStore
	chats  *store.ChatStore
	bridge *bridge.Service
}

func (p *statsProvider) Stats(ctx context.Context) (server.Stats, error) {
	links, err := p.links.Count(ctx)
	if err != nil {
		return server.Stats{}, err
	}
	chats, err := p.chats.Count(ctx)
	if err != nil {
		return server.Stats{}, err
	}
	return server.Stats{
		Links:   links,
		Chats:   chats,
		Pending: p.bridge.PendingCount(),
	}, nil
}

// startBridge connects both gateways and routes their events into the
// relay engine. Both connections must succeed before the app is up.
func startBridge(lc fx.Lifecycle, log *slog.Logger, svc *bridge.Service, mc *meower.Client, rc *revolt.Client) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			svc.Start(runCtx)
			mc.OnPost(svc.HandleMeowerPost)
			rc.OnMessage(svc.HandleRevoltMessage)

			// The hook ctx dies when startup finishes; the gateways and
			// their redial loops live on runCtx instead.
			if err := mc.Connect(runCtx); err != nil {
				return err
			}
			if err := rc.Connect(runCtx); err != nil {
				return err
			}
			log.Info("bridge running")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			_ = mc.Close(ctx)
			_ = rc.Close(ctx)
			return svc.Shutdown(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, srv *server.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.L.Error("ops server failed", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBPool,
			provideMeowerClient,
			provideRevoltClient,
			provideLinkStore,
			provideChatStore,
			provideBridge,
			provideStats,
			provideServer,
		),
		fx.Invoke(
			startBridge,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}
