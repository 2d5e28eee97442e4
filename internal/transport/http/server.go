package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photogram/internal/cache"
	"photogram/internal/config"
	"photogram/internal/database"
	"photogram/internal/handler"
	"photogram/internal/live"
	"photogram/internal/queue"
	appredis "photogram/internal/redis"
	"photogram/internal/repository"
	"photogram/internal/service"
	"photogram/internal/worker"
)

// Run wires the application together and serves until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rdb.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(startupCtx)
	cancelStartup()
	if err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	commentRepo := repository.NewCommentRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	userRepo := repository.NewUserRepository(db)

	userService := service.NewUserService(userRepo)
	publisher := queue.NewPublisher(rdb.Client)
	notifier := live.NewNotifier(rdb.Client)

	commentService := service.NewCommentService(
		commentRepo, photoRepo, likeRepo, userService, repository.NewTxRunner(db), publisher, notifier,
	)
	feed := live.NewFeed(rdb.Client, commentService)

	mediaService, err := service.NewMediaService(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create media service: %w", err)
	}

	// Count-delta workers keep the cached per-photo counters current
	consumer := queue.NewConsumer(rdb.Client)
	countCache := cache.NewCountCache(rdb.Client)
	workerCfg := worker.DefaultManagerConfig()
	workerCfg.WorkerCount = cfg.WorkerCount
	manager := worker.NewManager(consumer, worker.NewHandler(countCache), workerCfg)
	if err := manager.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	router := NewRouter(RouterConfig{
		CommentHandler: handler.NewCommentHandler(commentService, feed),
		MediaHandler:   handler.NewMediaHandler(mediaService),
		JWTSecret:      cfg.JWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
