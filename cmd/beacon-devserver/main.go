package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"beacon/internal/constants"
	"beacon/internal/devserver"
	"beacon/internal/logger"
	"beacon/pkg/logging"
	"beacon/pkg/middleware"
)

var (
	port         int
	token        string
	emitInterval time.Duration
	logLevel     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "beacon-devserver",
		Short: "Fixture backend for the notification agent",
		Long:  "beacon-devserver serves the push stream, unread count, slug map, and mark-read endpoints against generated fixture data",
		RunE:  run,
	}

	rootCmd.Flags().IntVar(&port, "port", 8081, "Listen port")
	rootCmd.Flags().StringVar(&token, "token", "dev-token", "Bearer credential clients must present (empty disables auth)")
	rootCmd.Flags().DurationVar(&emitInterval, "emit-interval", 10*time.Second, "Delay between generated live notifications")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	earlyLog := logging.NewEarlyLog()

	log, err := logger.New(logLevel)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return err
	}
	defer log.Sync()
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetComponent("beacon-devserver")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source := devserver.NewSource(log, emitInterval)
	handler := devserver.NewHandler(source, token, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfowCtx(gCtx, "Devserver listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return source.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.ErrorwCtx(ctx, "Devserver stopped with error", "error", err)
		return err
	}
	log.InfowCtx(ctx, "Shutdown complete")
	return nil
}
