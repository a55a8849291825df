package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"darkest-dnd-server/api"
	"darkest-dnd-server/auth"
	"darkest-dnd-server/config"
	"darkest-dnd-server/instance"
	"darkest-dnd-server/level"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/server"
)

var envFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		return serve(config.Load(files...))
	},
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env", "", "dotenv file to load (default .env)")
}

// loadGrid builds the tile grid for the configured preset.
func loadGrid(cfg config.Config) (config.MapPreset, *level.Grid, error) {
	preset, err := config.LookupPreset(cfg.MapPreset)
	if err != nil {
		return config.MapPreset{}, nil, err
	}
	m, err := level.LoadPreset(preset, cfg.MapFile, cfg.WindowHex)
	if err != nil {
		return config.MapPreset{}, nil, fmt.Errorf("load map %s: %w", preset.Name, err)
	}
	g, err := m.Grid(cfg.WindowHex)
	if err != nil {
		return config.MapPreset{}, nil, fmt.Errorf("build grid %s: %w", preset.Name, err)
	}
	return preset, g, nil
}

func serve(cfg config.Config) error {
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("main")

	preset, grid, err := loadGrid(cfg)
	if err != nil {
		return err
	}
	world := instance.NewWorld(grid, instance.Options{
		AdminAddress: cfg.AdminAddress,
		StrictAdmin:  cfg.StrictAdmin,
		Enemies:      preset.Enemies,
		Heroes:       preset.PlayerSpawns,
	})
	hub := server.NewHub(world, server.Options{AdminToken: auth.AdminCheck(cfg.AdminTokenSecret)})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(hub, api.Options{
			TrustProxy:       cfg.TrustProxy,
			AdminTokenSecret: cfg.AdminTokenSecret,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	httpDone := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpDone <- err
			return
		}
		httpDone <- nil
	}()

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs, hs := api.NewGRPCServer()
		go api.WatchHealth(ctx, hub, hs, time.Second)
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("grpc server started")
			if err := gs.Serve(lis); err != nil {
				log.WithError(err).Error("grpc server stopped")
			}
		}()
		defer gs.GracefulStop()
	}

	log.WithFields(logrus.Fields{
		"map":    preset.Name,
		"rows":   grid.Rows(),
		"cols":   grid.Cols(),
		"strict": cfg.StrictAdmin,
	}).Info("world ready")

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		if err != nil {
			stop()
			<-hubDone
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := <-hubDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
