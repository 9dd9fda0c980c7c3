package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/condmatch/internal/core/api"
	"github.com/solatis/condmatch/internal/core/auth"
	"github.com/solatis/condmatch/internal/core/catalog"
	"github.com/solatis/condmatch/internal/core/config"
	"github.com/solatis/condmatch/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC match service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().Bool("no-catalog", false, "serve inline rules only, without opening the database")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if cmd.Flags().Changed("host") {
		e.cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		e.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := config.Validate(e.cfg); err != nil {
		return err
	}

	engine, err := e.engine()
	if err != nil {
		return err
	}

	var cat *catalog.Catalog
	if noCatalog, _ := cmd.Flags().GetBool("no-catalog"); !noCatalog {
		c, closeDB, err := e.openCatalog(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		cat = c
	}

	secrets, err := config.APISecrets()
	if err != nil {
		return fmt.Errorf("failed to load API secrets: %w", err)
	}

	service, err := api.NewMatchService(e.cfg, engine, cat, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(&e.cfg.Server, service, auth.NewAuthenticator(secrets), e.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	e.logger.Info("starting condmatch match service",
		zap.String("version", Version),
		zap.String("address", e.cfg.Server.Address()),
		zap.String("regex", e.cfg.Engine.Regex))

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		e.logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	}
}
