package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveawaybot/internal/bot"
	"giveawaybot/internal/config"
	"giveawaybot/internal/handlers"
	"giveawaybot/internal/logger"
	"giveawaybot/internal/service"
	"giveawaybot/internal/storage"
	"giveawaybot/internal/timeparse"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const serviceName = "giveawaybot"

func main() {
	app := &cli.App{
		Name:   serviceName,
		Usage:  "Telegram channel giveaway bot",
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the bot, the deadline watcher and the HTTP API (default)",
				Action: runBot,
			},
			{
				Name:   "migrate",
				Usage:  "create the database schema and apply the configured giveaway",
				Action: migrateDB,
			},
			{
				Name:   "status",
				Usage:  "print the giveaway state",
				Action: printStatus,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("giveawaybot failed")
	}
}

// app holds what every command needs
type app struct {
	cfg   *config.Config
	tp    *timeparse.Parser
	store *storage.Store
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(serviceName, cfg.Debug)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger.Info().Str("db_path", cfg.Storage.DBPath).Msg("initializing database")
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &app{cfg: cfg, tp: timeparse.New(loc), store: store}, nil
}

// seedGiveaway creates or refreshes the giveaway row and applies GIVEAWAY_START/GIVEAWAY_END
func (a *app) seedGiveaway(ctx context.Context, svc *service.GiveawayService) error {
	gc := a.cfg.Giveaway
	err := a.store.EnsureGiveaway(ctx, storage.GiveawaySeed{
		Code:          gc.Code,
		OrganizerLink: gc.OrganizerLink,
		PrizeCount:    gc.PrizeCount,
		PrizeLabel:    gc.PrizeLabel,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return err
	}

	now := time.Now()
	start, err := a.tp.ParseOptional(gc.Start, now)
	if err != nil {
		return fmt.Errorf("invalid GIVEAWAY_START: %w", err)
	}
	end, err := a.tp.ParseOptional(gc.End, now)
	if err != nil {
		return fmt.Errorf("invalid GIVEAWAY_END: %w", err)
	}
	if start == nil && end == nil {
		return nil
	}

	g, err := svc.SetTimes(ctx, start, end)
	if errors.Is(err, service.ErrAlreadyFinished) {
		logger.Warn().Str("code", gc.Code).Msg("giveaway already finished, configured times ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply configured times: %w", err)
	}
	logger.Info().
		Str("start", a.tp.Format(g.StartAt)).
		Str("end", a.tp.Format(g.EndAt)).
		Msg("configured giveaway times applied")
	return nil
}

func (a *app) pendingStore(ctx context.Context) (service.PendingActions, func(), error) {
	rc := a.cfg.Redis
	ttl := a.cfg.Workers.PendingActionTTL
	if rc.Addr == "" {
		return service.NewMemoryPending(ttl), func() {}, nil
	}

	client, err := service.OpenRedis(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info().Str("addr", rc.Addr).Msg("pending admin actions stored in redis")
	return service.NewRedisPending(client, a.cfg.Giveaway.Code, ttl), func() { client.Close() }, nil
}

func runBot(c *cli.Context) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.store.Close()
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.PollTimeout)
	if err != nil {
		return err
	}

	metrics := service.NewMetrics()
	notifier := service.NewNotifier(b, a.store, metrics, service.NotifierOptions{
		OrganizerID:       cfg.Giveaway.OrganizerID,
		PrizeLabels:       cfg.Giveaway.PrizeLabels,
		ResultsDelay:      cfg.Workers.ResultsMessageDelay,
		BroadcastInterval: cfg.Workers.BroadcastInterval,
	})
	svc := service.NewGiveawayService(a.store, notifier, metrics, cfg.Giveaway.Code)
	if err := a.seedGiveaway(ctx, svc); err != nil {
		return err
	}

	pending, closePending, err := a.pendingStore(ctx)
	if err != nil {
		return err
	}
	defer closePending()

	bot.Register(b, bot.NewHandlers(bot.Deps{
		Service:       svc,
		Subscriptions: service.NewSubscriptionChecker(b, cfg.Giveaway.ChannelUsername, metrics),
		Pending:       pending,
		Parser:        a.tp,
		OrganizerID:   cfg.Giveaway.OrganizerID,
	}))

	watcher := service.NewDeadlineWatcher(svc, cfg.Workers.WatchInterval)
	watcher.SetReporter(func(r *service.FinalizeResult) {
		notifier.NotifyOrganizer(service.FinalizeReportText(r, a.tp.Format(r.Giveaway.ResultsAt)))
	})
	watcher.Start()
	defer watcher.Stop()

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: handlers.NewRouter(handlers.NewAPI(svc), handlers.RouterConfig{
				BotToken:    cfg.Telegram.BotToken,
				InitDataTTL: cfg.HTTP.InitDataTTL,
				OrganizerID: cfg.Giveaway.OrganizerID,
				Registry:    metrics.Registry,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("http server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(0, "http_server_failed", err)
				stop()
			}
		}()
	}

	go bot.Start(b)

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	b.Stop()
	watcher.Stop()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(0, "http_shutdown_failed", err)
		}
	}
	return nil
}

func migrateDB(c *cli.Context) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.store.Close()

	svc := service.NewGiveawayService(a.store, nil, nil, a.cfg.Giveaway.Code)
	if err := a.seedGiveaway(c.Context, svc); err != nil {
		return err
	}
	logger.Info().Str("code", a.cfg.Giveaway.Code).Msg("database ready")
	return nil
}

func printStatus(c *cli.Context) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.store.Close()

	svc := service.NewGiveawayService(a.store, nil, nil, a.cfg.Giveaway.Code)
	g, status, err := svc.Status(c.Context)
	if err != nil {
		return err
	}
	count, err := svc.ParticipantCount(c.Context)
	if err != nil {
		return err
	}
	winners, err := svc.Winners(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Giveaway #%s\n", g.Code)
	fmt.Printf("Status:       %s\n", status)
	fmt.Printf("Start:        %s\n", a.tp.Format(g.StartAt))
	fmt.Printf("End:          %s\n", a.tp.Format(g.EndAt))
	fmt.Printf("Results:      %s\n", a.tp.Format(g.ResultsAt))
	fmt.Printf("Participants: %d\n", count)
	for _, w := range winners {
		fmt.Printf("Place %d:      %d\n", w.Place, w.TelegramID)
	}
	return nil
}
