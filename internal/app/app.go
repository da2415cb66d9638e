package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kstolbov/pointsledger/internal/accrual"
	"github.com/kstolbov/pointsledger/internal/cache"
	"github.com/kstolbov/pointsledger/internal/config"
	"github.com/kstolbov/pointsledger/internal/handlers"
	"github.com/kstolbov/pointsledger/internal/notify"
	"github.com/kstolbov/pointsledger/internal/pg"
	"github.com/kstolbov/pointsledger/internal/repo"
	"github.com/kstolbov/pointsledger/internal/service"
	"github.com/kstolbov/pointsledger/internal/service/ledgerservice"
	pkgauth "github.com/kstolbov/pointsledger/pkg/auth"
	"github.com/kstolbov/pointsledger/pkg/clients"
	"github.com/kstolbov/pointsledger/pkg/logger"
)

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg  *config.Config
	api  *handlers.Handlers
	srv  *service.Services
	repo *repo.Repositories
	ext  *accrual.Service

	natsConn *nats.Conn
	errCh    chan error
	wg       sync.WaitGroup
	ready    bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)
	conn := pg.New(pool)

	jwtService := pkgauth.NewJWTService(cfg.JWTSecret)

	var notifier ledgerservice.Notifier = notify.NewLogNotifier()
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			zap.L().Error("nats connect failed: ", zap.Error(err))
			return fmt.Errorf("can't connect to nats: %w", err)
		}
		a.natsConn = nc
		notifier = notify.NewNATSNotifier(nc, notify.DefaultSubject)
	}

	var leaderboard ledgerservice.LeaderboardCache
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zap.L().Error("redis ping failed: ", zap.Error(err))
			return fmt.Errorf("can't connect to redis: %w", err)
		}
		leaderboard = cache.NewLeaderboardCache(rdb, cfg.LeaderboardTTL)
	}

	a.cfg = cfg
	a.repo = repo.New(conn)
	a.srv = service.New(a.repo, txManager, notifier, leaderboard, jwtService)
	a.api = handlers.New(a.srv, jwtService)
	a.ext = accrual.New(cfg, a.srv.LedgerService, clients.NewHTTPClient())

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.startCampaignPoller(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:    a.cfg.Address,
		Handler: router,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startCampaignPoller(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.ext.Start(ctx)
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	close(a.errCh)
	wg.Wait()

	return appErr
}
