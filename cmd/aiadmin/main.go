// Package main implements the aiadmin operator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/services/factory"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gorm.io/gorm"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aiadmin",
	Short: "Operate the clinic site admin pipeline",
	Long: `aiadmin runs maintenance and pipeline operations directly against the
database, without going through the HTTP service.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the config file")
}

// env is what a command needs to reach the database and the pipeline.
type env struct {
	cfg *config.Config
	log *logger.Logger
	db  *gorm.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	database, err := db.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: database}, nil
}

func (e *env) pipeline() (*factory.Pipeline, error) {
	return e.build(false)
}

// queryPipeline is for commands that never run a stage; it works without
// model credentials.
func (e *env) queryPipeline() (*factory.Pipeline, error) {
	return e.build(true)
}

func (e *env) build(deferModel bool) (*factory.Pipeline, error) {
	return factory.NewPipeline(factory.Options{
		Config:     e.cfg,
		DB:         e.db,
		Logger:     e.log,
		Registry:   prometheus.NewRegistry(),
		DeferModel: deferModel,
	})
}

func (e *env) close() {
	_ = db.Close(e.db)
	_ = e.log.Sync()
}
