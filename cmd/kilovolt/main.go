package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iceymoss/kilovolt/internal/conf"
	"github.com/iceymoss/kilovolt/internal/repo"
	"github.com/iceymoss/kilovolt/internal/seed"
	"github.com/iceymoss/kilovolt/internal/server"
	"github.com/iceymoss/kilovolt/pkg/db"
	"github.com/iceymoss/kilovolt/pkg/logger"
	"github.com/iceymoss/kilovolt/pkg/storage"
	"github.com/iceymoss/kilovolt/pkg/transaction"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	configPath string
	port       string
)

var rootCmd = &cobra.Command{
	Use:   "kilovolt",
	Short: "Blog articles and authors over HTTP, backed by Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the tables, load the fixture and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return a.initSchema(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&port, "port", "", "Listen port, overrides PORT and server.port")
	rootCmd.AddCommand(seedCmd)
}

// app holds what both commands share.
type app struct {
	cfg   *conf.Config
	gdb   *gorm.DB
	files *storage.LocalStorage
	log   *zap.Logger
}

func bootstrap(ctx context.Context) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env: %w", err)
	}

	cfg, err := conf.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	log := logger.With(zap.String("service", "kilovolt"))
	gdb, err := db.OpenPostgres(ctx, db.Options{
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		LogLevel:     cfg.Database.LogLevel,
		Logger:       log.Named("gorm"),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{
		cfg:   cfg,
		gdb:   gdb,
		files: storage.NewLocalStorage(cfg.Server.PublicDir),
		log:   log,
	}, nil
}

// initSchema creates the tables and, if enabled, seeds them from the fixture.
func (a *app) initSchema(ctx context.Context) error {
	sdb, err := db.Sqlx(a.gdb)
	if err != nil {
		return err
	}

	var loader *seed.Loader
	if a.cfg.Seed.Enable {
		loader = seed.NewLoader(sdb, a.files, a.cfg.Seed.Fixture, a.log.Named("seed"))
	}
	return seed.NewInitializer(sdb, loader, a.log.Named("schema")).EnsureSchema(ctx)
}

func (a *app) close() {
	if err := db.Close(a.gdb); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// 建表和种子数据完成后才开始监听; 失败只记录, 服务照常启动
	if err := a.initSchema(ctx); err != nil {
		a.log.Error("schema initialization incomplete", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	store := repo.NewArticleRepo(a.gdb, transaction.NewManager(a.gdb))
	srv := server.NewServer(store, a.files, a.log.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(a.cfg.Server.Addr(), func(_ net.Addr) {
			a.log.Info(fmt.Sprintf("Server started on port %s!", strings.TrimPrefix(a.cfg.Server.Port, ":")))
		})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("kilovolt exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
