// Package main is the entry point for the equations server.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/equations/pkg/api"
	grpcapi "github.com/lemonberrylabs/equations/pkg/api/grpc"
	"github.com/lemonberrylabs/equations/pkg/config"
	"github.com/lemonberrylabs/equations/pkg/store"
	"github.com/lemonberrylabs/equations/web"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equations",
		Short: "Equation store and evaluator",
		Long: `Serves a REST API, a gRPC API, and a small web UI for storing infix
equations and evaluating them against variable bindings.`,
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	cmd.SetVersionTemplate("equations version {{.Version}}\n")

	cmd.Flags().String("config", "", "TOML config file")
	cmd.Flags().Int("port", 0, "HTTP server port (default 8080, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8081, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("db", "", "SQLite database file; in-memory when empty (env EQUATIONS_DB)")
	cmd.Flags().String("seed", "", "YAML file of equations to store at startup (env EQUATIONS_SEED)")
	cmd.Flags().Bool("no-ui", false, "Disable the web UI")
	cmd.Flags().Bool("access-log", false, "Log every HTTP request")

	cmd.AddCommand(newEvalCmd(), newRenderCmd(), newPostfixCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, the environment, and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		cfg.Server.GRPCPort = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("seed"); v != "" {
		cfg.Storage.SeedFile = v
	}
	if v, _ := cmd.Flags().GetBool("no-ui"); v {
		cfg.Server.UI = false
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Storage.DBPath == "" {
		return store.New(), nil
	}
	return store.OpenSQLite(cfg.Storage.DBPath)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	accessLog, _ := cmd.Flags().GetBool("access-log")
	server := api.New(s, api.Options{
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		AccessLog:    accessLog,
	})

	if cfg.Storage.SeedFile != "" {
		if _, err := server.LoadSeedFile(cfg.Storage.SeedFile); err != nil {
			log.Printf("Warning: failed to load seed file: %v", err)
		}
	}

	if cfg.Server.UI {
		// Register the web UI (non-fatal if template parsing fails)
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Warning: web UI disabled due to template error: %v", r)
				}
			}()
			web.New(s).Register(server.App())
		}()
	}

	// Start gRPC server
	grpcServer := grpcapi.New(s)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down equations server...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	if cfg.Storage.DBPath != "" {
		log.Printf("Using SQLite store at %s", cfg.Storage.DBPath)
	} else {
		log.Printf("Using in-memory store")
	}
	log.Printf("Equations server listening on %s", cfg.Addr())
	return server.Listen(cfg.Addr())
}
