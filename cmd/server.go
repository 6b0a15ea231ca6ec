package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ryxu-xo/euralink/config"
	"github.com/ryxu-xo/euralink/internal/adminapi"
	"github.com/ryxu-xo/euralink/internal/connection"
	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/orchestrator"
	"github.com/ryxu-xo/euralink/internal/player"
	"github.com/ryxu-xo/euralink/internal/pool"
	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/internal/restclient/rediscache"
	"github.com/ryxu-xo/euralink/internal/store"
	"github.com/ryxu-xo/euralink/internal/store/sqlstore"
	"github.com/ryxu-xo/euralink/logger"
)

// loggingSender is the default gateway.Sender used when orchestratord runs
// standalone, without a chat gateway driver attached. It logs the command
// it would have sent instead of delivering it anywhere.
type loggingSender struct{}

func (loggingSender) SendVoiceCommand(cmd gateway.VoiceJoinCommand) error {
	logger.Info("cmd: voice command not delivered, no gateway driver attached",
		logger.String("guildId", cmd.D.GuildID))
	return nil
}

func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, orchestrator.SnapshotStore) {
	var cache restclient.Cache
	if cfg.UseRedisCache {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache = rediscache.New(rdb, "euralink")
		logger.Info("cmd: using redis-backed rest cache", logger.String("addr", cfg.RedisAddr))
	}

	orch := orchestrator.New(orchestrator.Config{
		BotUserID: "orchestratord",
		PlayerConfig: player.Config{
			BatchDelay:     cfg.PlayerBatchDelay,
			StuckThreshold: cfg.StuckThreshold,
			HistoryLimit:   50,
			AutoResume:     true,
			ConnectionConfig: connection.Config{
				FlushDelay: cfg.VoiceBatchDelay,
			},
		},
		PoolConfig: pool.Config{
			RebalanceInterval:  cfg.PoolRebalanceInterval,
			MigrationThreshold: cfg.PoolMigrationThreshold,
			HealthCacheTTL:     cfg.HealthCacheTTL,
		},
		RestConfig: restclient.Config{
			MaxRetries:    cfg.RestMaxRetries,
			Timeout:       cfg.RestTimeout,
			CacheTTL:      cfg.RestCacheTTL,
			TrackCacheTTL: cfg.TrackCacheTTL,
			Cache:         cache,
		},
	}, loggingSender{})

	ctx := context.Background()
	for _, n := range cfg.Nodes {
		nodeCfg := orchestrator.NodeSpec{
			Name:     n.Name,
			Host:     n.Host,
			Password: n.Password,
			Secure:   n.Secure,
			Regions:  n.Regions,
		}
		orch.AddNode(ctx, nodeCfg)
	}

	var snapshotStore orchestrator.SnapshotStore = store.NewFileStore(cfg.SnapshotPath)
	if cfg.UseSQLStore && cfg.MySQLDSN != "" {
		sqlStore, err := sqlstore.Open(cfg.MySQLDSN)
		if err != nil {
			logger.Error("cmd: failed to open sql snapshot store, falling back to file store", logger.ErrorField(err))
		} else {
			snapshotStore = sqlStore
		}
	}

	return orch, snapshotStore
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.Level(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	orch, snapshotStore := buildOrchestrator(cfg)

	if err := orch.LoadPlayersState(snapshotStore, cfg.DefaultRegion); err != nil {
		logger.Warn("cmd: failed to restore persisted player state", logger.ErrorField(err))
	}

	admin := adminapi.New(adminapi.Config{
		Addr:      cfg.AdminAddr,
		JWTSecret: cfg.AdminJWTSecret,
	}, orch, snapshotStore, cfg.DefaultRegion)
	admin.Start()

	rebalanceCtx, cancelRebalance := context.WithCancel(context.Background())
	defer cancelRebalance()
	go orch.RunRebalanceLoop(rebalanceCtx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("cmd: orchestratord started", logger.String("adminAddr", cfg.AdminAddr))
	<-sig

	logger.Info("cmd: shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := orch.SavePlayersState(snapshotStore); err != nil {
		logger.Error("cmd: failed to persist player state on shutdown", logger.ErrorField(err))
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error("cmd: admin api shutdown error", logger.ErrorField(err))
	}
	orch.Shutdown()

	return nil
}
