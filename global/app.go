package global

import (
	"context"
	"errors"
	"net/http"
	"time"

	"FeedNotify/global/config"
	"FeedNotify/logger"
	"FeedNotify/middleware/security"
	"FeedNotify/module/notify/handler"
	"FeedNotify/module/notify/service"
	"FeedNotify/service/api"
	"FeedNotify/service/cron"
	"FeedNotify/service/kafka"
	"FeedNotify/service/natsx"
	"FeedNotify/service/notifier"
	"FeedNotify/service/storage"
	redis "FeedNotify/service/storage/redis"
	jwtsec "FeedNotify/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App is the assembled process.
type App struct {
	Cfg     config.AppConfig
	Log     *zap.Logger
	Store   storage.Store
	Service *service.Service
	Feed    *handler.Feed
	Router  *gin.Engine
	Cron    *cron.Runner

	nats    *natsx.Client
	kafka   *kafka.Consumer
	idem    *natsx.MemIdem
	closers []func() error
}

// Setup builds every component named by cfg. Nothing is started yet
// except the outbound connections the components need.
func Setup(cfg config.AppConfig) (*App, error) {
	a := &App{Cfg: cfg, Log: logger.Init(cfg.Log.Level)}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"store", a.configStore},
		{"service", a.configService},
		{"nats", a.configNats},
		{"kafka", a.configKafka},
		{"scheduler", a.configScheduler},
		{"http", a.configHTTP},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			glog.Errorf("[setup] %s failed: %v", s.name, err)
			return nil, err
		}
		glog.Infof("[setup] %s ok", s.name)
	}
	ok = true
	return a, nil
}

func (a *App) configStore() error {
	if a.Cfg.Store.Backend == "memory" {
		a.Store = storage.NewMemStore()
		return nil
	}
	rc := a.Cfg.Redis
	if err := redis.InitRedis(redis.Config{
		Addr:        rc.Addr,
		Password:    rc.Password,
		DB:          rc.DB,
		PoolSize:    rc.PoolSize,
		DialTimeout: rc.DialTimeout,
	}); err != nil {
		return err
	}
	a.closers = append(a.closers, redis.CloseRedis)
	a.Store = storage.NewRedisStore(redis.GetRedis(), rc.OpTimeout)
	return nil
}

func (a *App) configService() error {
	loc, err := a.Cfg.Location()
	if err != nil {
		return err
	}
	sink, err := a.buildSink()
	if err != nil {
		return err
	}
	svc, err := service.New(a.Store, service.Options{
		Periods:          a.Cfg.Notify.Periods,
		Limit:            a.Cfg.Notify.Limit,
		Location:         loc,
		DrainConcurrency: a.Cfg.Notify.DrainConcurrency,
	}, sink, a.Log.Named("notify"))
	if err != nil {
		return err
	}
	a.Service = svc
	a.Feed = handler.NewFeed(svc, a.Log.Named("feed"))
	return nil
}

func (a *App) buildSink() (service.Sink, error) {
	sc := a.Cfg.Sink
	switch sc.Kind {
	case "nats":
		c, err := a.natsClient()
		if err != nil {
			return nil, err
		}
		p := natsx.NewProducer(c, natsx.Route{Subject: sc.Subject, Mode: natsx.ParseMode(a.Cfg.NATS.Mode)})
		return notifier.NewPublishSink(p, sc.SkipEmpty), nil
	case "kafka":
		p, err := kafka.NewProducer(a.kafkaConfig(), sc.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return notifier.NewPublishSink(p, sc.SkipEmpty), nil
	default:
		return notifier.NewLogSink(a.Log.Named("sink")), nil
	}
}

func (a *App) natsClient() (*natsx.Client, error) {
	if a.nats != nil {
		return a.nats, nil
	}
	nc := a.Cfg.NATS
	c, err := natsx.NewClient(natsx.Config{
		Servers:  nc.Servers,
		Name:     nc.Name,
		User:     nc.User,
		Password: nc.Password,
	})
	if err != nil {
		return nil, err
	}
	a.nats = c
	a.closers = append(a.closers, c.Close)
	return c, nil
}

func (a *App) kafkaConfig() kafka.Config {
	kc := a.Cfg.Kafka
	return kafka.Config{
		Brokers:             kc.Brokers,
		GroupID:             kc.GroupID,
		Version:             kc.Version,
		ProducerRetries:     kc.Retries,
		ProducerCompression: kc.Compression,
		InitialOffset:       kc.InitialOffset,
		Partitions:          kc.Partitions,
		ReplicationFactor:   kc.ReplicationFactor,
		EnsureTopics:        kc.EnsureTopics,
	}
}

// configNats subscribes the feed handler; deliveries start right away.
func (a *App) configNats() error {
	nc := a.Cfg.NATS
	if !nc.Enabled {
		return nil
	}
	c, err := a.natsClient()
	if err != nil {
		return err
	}
	mws := []natsx.Middleware{natsx.Logging(a.Log.Named("nats"), time.Second)}
	if nc.Dedupe {
		a.idem = natsx.NewMemIdem(nc.DedupeTTL)
		mws = append(mws, natsx.Idempotent(a.idem, nc.DedupeTTL))
	}
	return natsx.NewConsumer(c, mws...).Subscribe(natsx.Route{
		Subject: nc.Subject,
		Mode:    natsx.ParseMode(nc.Mode),
		Queue:   nc.Queue,
		Durable: nc.Durable,
		AckWait: nc.AckWait,
	}, func(ctx context.Context, msg natsx.Message) error {
		return a.Feed.Dispatch(ctx, msg.Data)
	})
}

func (a *App) configKafka() error {
	kc := a.Cfg.Kafka
	if !kc.Enabled {
		return nil
	}
	cfg := a.kafkaConfig()
	if cfg.EnsureTopics {
		if err := kafka.EnsureTopics(cfg, []string{kc.Topic}, a.Log.Named("kafka")); err != nil {
			return err
		}
	}
	c, err := kafka.NewConsumer(cfg, []string{kc.Topic}, a.Log.Named("kafka"))
	if err != nil {
		return err
	}
	a.kafka = c
	a.closers = append(a.closers, c.Close)
	return nil
}

func (a *App) configScheduler() error {
	sc := a.Cfg.Scheduler
	if !sc.Enabled {
		return nil
	}
	loc, err := a.Cfg.Location()
	if err != nil {
		return err
	}
	r, err := cron.New(cron.Config{Spec: sc.Spec, Timeout: sc.Timeout, Location: loc}, a.Service.Digest, a.Log.Named("cron"))
	if err != nil {
		return err
	}
	a.Cron = r
	return nil
}

func (a *App) configHTTP() error {
	if logger.ParseLevel(a.Cfg.Log.Level) > zap.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := api.Options{Origins: a.Cfg.HTTP.Origins}
	if ac := a.Cfg.Auth; ac.Enabled {
		opts.Auth = security.Middleware(security.Options{
			JWT:         jwtsec.Options{Secret: []byte(ac.Secret), Alg: ac.Alg, Issuer: ac.Issuer},
			HeaderToken: ac.Header,
		})
	}
	a.Router = api.NewRouter(a.Service, a.Feed, opts, a.Log.Named("http"))
	return nil
}

// Run serves until ctx is done or a component fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{Addr: a.Cfg.HTTP.Addr, Handler: a.Router, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		glog.Infof("[http] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if a.Cron != nil {
			a.Cron.Stop(sctx)
		}
		return srv.Shutdown(sctx)
	})

	if a.kafka != nil {
		g.Go(func() error {
			return a.kafka.Run(gctx, func(ctx context.Context, _ string, _, value []byte) error {
				return a.Feed.Dispatch(ctx, value)
			})
		})
	}
	if a.idem != nil {
		g.Go(func() error {
			a.idem.Sweep(gctx, time.Minute)
			return nil
		})
	}
	if a.Cron != nil {
		g.Go(func() error { return a.Cron.Start(gctx) })
	}

	err := g.Wait()
	a.Close()
	return err
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			glog.Warningf("[close] %v", err)
		}
	}
	a.closers = nil
	_ = a.Log.Sync()
}
