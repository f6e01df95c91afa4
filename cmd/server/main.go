// bazaard runs the marketplace daemon: the engine and its HTTP/websocket
// surface, the outbox broadcaster, and the expiry sweep job.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apihttp "bazaar/api/http"
	"bazaar/api/ws"
	"bazaar/collab"
	"bazaar/config"
	"bazaar/engine"
	"bazaar/infra/hooks"
	"bazaar/infra/outbox"
	"bazaar/infra/store"
	"bazaar/jobs/broadcaster"
	"bazaar/jobs/sweep"
	"bazaar/logger"
	"bazaar/service"
)

func main() {
	root := &cobra.Command{
		Use:   "bazaard",
		Short: "NFT order-book marketplace and reserve-auction engine",
	}
	root.AddCommand(serverCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "run the marketplace daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "config.toml", "config file path")
	return cmd
}

func run(cfg *config.Config) error {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	params, err := cfg.Params()
	if err != nil {
		return err
	}
	adminAddrs, err := cfg.AdminAddrs()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.StoreDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ob, err := outbox.Open(db)
	if err != nil {
		return err
	}

	// In-process collaborators. Production deployments swap these for
	// adapters to the chain-side services.
	nft := collab.NewMemoryNFT()
	royalties := collab.NewMemoryRoyalties()
	bank := collab.NewMemoryBank()
	admins := collab.NewMemoryAdmins(adminAddrs...)

	eng, err := engine.New(db, ob, nft, royalties, bank, params, log.Named("engine"))
	if err != nil {
		return err
	}

	var notifier *hooks.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		notifier = hooks.NewNotifier(cfg.Kafka.Brokers, cfg.Kafka.Listeners, log.Named("hooks"))
		defer notifier.Close()
	}

	svc := service.New(eng, admins, notifier, log.Named("service"))
	hub := ws.NewHub(log.Named("ws"))
	svc.SetPublisher(hub)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		bc, err := broadcaster.New(ob, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.BroadcastInterval, log.Named("broadcaster"))
		if err != nil {
			return err
		}
		defer bc.Close()
		bc.Start(ctx)
	}
	sweep.New(svc, cfg.SweepInterval, log.Named("sweep")).Start(ctx)

	srv := apihttp.NewServer(cfg.HTTPAddr, svc, hub, log.Named("http"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
