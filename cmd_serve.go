package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v3"
	fiberLogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/spf13/cobra"

	"haruki-const-decrypter/api"
	"haruki-const-decrypter/config"
	harukiLogger "haruki-const-decrypter/utils/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the configured modules and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, closeLog, err := openLogWriter()
			if err != nil {
				return fmt.Errorf("failed to open main log file: %w", err)
			}
			defer closeLog()
			logger := harukiLogger.NewLogger("Main", config.Cfg.Backend.LogLevel, writer)
			logger.Infof("========================= Haruki Const Decrypter %s =========================", config.Version)
			logger.Infof("Powered By Haruki Dev Team")

			registry := api.NewRegistry()
			if len(config.Cfg.Modules) > 0 {
				modules, err := loadModules(cmd.Context(), config.Cfg.Modules)
				if err != nil {
					return err
				}
				for _, m := range modules {
					e, err := registry.Add(m, decrypterOptions())
					if err != nil {
						logger.Errorf("%s: %v", m.Name, err)
						continue
					}
					if e.Decrypter == nil {
						logger.Infof("Loaded %s (not protected)", m.Name)
					} else {
						logger.Infof("Loaded %s (%s)", m.Name, e.Decrypter.Version())
					}
				}
			}

			app := api.NewApp()
			if config.Cfg.Backend.AccessLog != "" {
				logCfg := fiberLogger.Config{Format: config.Cfg.Backend.AccessLog}
				if config.Cfg.Backend.AccessLogPath != "" {
					accessLogFile, err := os.OpenFile(config.Cfg.Backend.AccessLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
					if err != nil {
						return fmt.Errorf("failed to open access log file: %w", err)
					}
					defer func(accessLogFile *os.File) {
						_ = accessLogFile.Close()
					}(accessLogFile)
					logCfg.Stream = accessLogFile
				}
				app.Use(fiberLogger.New(logCfg))
			}
			api.RegisterRoutes(app, registry)

			addr := fmt.Sprintf("%s:%d", config.Cfg.Backend.Host, config.Cfg.Backend.Port)
			listenCfg := fiber.ListenConfig{DisableStartupMessage: true}
			if config.Cfg.Backend.SSL {
				listenCfg.CertFile = config.Cfg.Backend.SSLCert
				listenCfg.CertKeyFile = config.Cfg.Backend.SSLKey
			}
			logger.Infof("Listening on %s", addr)
			return app.Listen(addr, listenCfg)
		},
	}
}
