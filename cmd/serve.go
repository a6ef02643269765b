package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	gdaemon "github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwel/gsmd/internal/config"
	"github.com/cwel/gsmd/internal/daemon"
)

var serveBackground bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session manager daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		dataDir := config.DataDir()
		socketDir := filepath.Dir(cfg.Listen.SocketPath)
		pidFile := filepath.Join(socketDir, "gsmd.pid")
		logFile := filepath.Join(dataDir, "gsmd.log")

		os.MkdirAll(socketDir, 0700)
		os.MkdirAll(dataDir, 0700)

		if _, err := os.Stat(pidFile); err == nil {
			if _, err := os.Stat(cfg.Listen.SocketPath); os.IsNotExist(err) {
				os.Remove(pidFile)
			}
		}

		if !serveBackground {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			return runDaemon(cfg, logger)
		}

		cntxt := &gdaemon.Context{
			PidFileName: pidFile,
			PidFilePerm: 0644,
			LogFileName: logFile,
			LogFilePerm: 0640,
			WorkDir:     dataDir,
			Umask:       027,
		}

		d, err := cntxt.Reborn()
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if d != nil {
			return nil
		}
		defer cntxt.Release()

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return runDaemon(cfg, logger)
	},
}

func runDaemon(cfg *config.Config, logger *zap.SugaredLogger) error {
	d := daemon.New(cfg, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		d.Stop()
	}()

	return d.Start()
}

func newLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func init() {
	serveCmd.Flags().BoolVarP(&serveBackground, "background", "b", false, "Run detached from the terminal")
	rootCmd.AddCommand(serveCmd)
}
