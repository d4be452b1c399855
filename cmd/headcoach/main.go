package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/api"
	"github.com/manunited/headcoach/internal/client"
	"github.com/manunited/headcoach/internal/config"
	"github.com/manunited/headcoach/internal/core"
	"github.com/manunited/headcoach/internal/logging"
	"github.com/manunited/headcoach/internal/provider"
	"github.com/manunited/headcoach/internal/store"
	"github.com/manunited/headcoach/internal/tui"
)

func main() {
	root := &cobra.Command{
		Use:           "headcoach",
		Short:         "Social-coaching chat: missions, the Head Coach mentor, and the Mugu-Shield",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), chatCmd(), missionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer dbStore.Close()

			llm := provider.NewClient(provider.Config{
				BaseURL:       cfg.ProviderAPIURL,
				APIKey:        cfg.ProviderAPIKey,
				Model:         cfg.ProviderModel,
				FallbackModel: cfg.ProviderFallbackModel,
			}, logger)

			accounts := core.NewAccountService(dbStore, logger)
			missions := core.NewMissionService(dbStore, logger)
			chat := core.NewChatService(dbStore, llm, logger)
			mugu := core.NewMuguService(dbStore, llm, logger)

			apiHandler := api.NewAPIHandler(cfg, accounts, missions, chat, mugu, logger)
			router := api.NewRouter(apiHandler, logger)

			srv := &http.Server{
				Addr:         ":" + cfg.HTTPPort,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second, // provider calls can take a while
				IdleTimeout:  120 * time.Second,
			}

			go func() {
				logger.Info("starting server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("server failed", zap.Error(err))
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			logger.Info("shutting down server")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logger.Info("server exited gracefully")
			return nil
		},
	}
}

// newSession logs in against the server and loads the mission list; the
// shared lifecycle for the client-facing subcommands.
func newSession(serverURL, email, password string) (*client.Session, *zap.Logger, error) {
	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	session := client.NewSession(serverURL, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := session.Login(ctx, email, password); err != nil {
		return nil, nil, fmt.Errorf("login failed: %w", err)
	}
	if _, err := session.LoadMissions(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to load missions: %w", err)
	}
	return session, logger, nil
}

func chatCmd() *cobra.Command {
	var serverURL, email, password, missionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat with the Head Coach",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, logger, err := newSession(serverURL, email, password)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer session.SignOut()

			if missionID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := session.SelectMission(ctx, missionID); err != nil {
					return fmt.Errorf("failed to open mission: %w", err)
				}
			}
			return tui.Run(session)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&email, "email", os.Getenv("HEADCOACH_EMAIL"), "account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("HEADCOACH_PASSWORD"), "account password")
	cmd.Flags().StringVar(&missionID, "mission", "", "mission to open (default: general strategy)")
	return cmd
}

func missionsCmd() *cobra.Command {
	var serverURL, email, password string

	cmd := &cobra.Command{
		Use:   "missions",
		Short: "Manage missions from the command line",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	cmd.PersistentFlags().StringVar(&email, "email", os.Getenv("HEADCOACH_EMAIL"), "account email")
	cmd.PersistentFlags().StringVar(&password, "password", os.Getenv("HEADCOACH_PASSWORD"), "account password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, logger, err := newSession(serverURL, email, password)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer session.SignOut()

			for _, m := range session.Missions() {
				active := " "
				if m.IsActive {
					active = "*"
				}
				fmt.Printf("%s %s  %-20s  stage=%-8s mode=%-4s\n", active, m.ID, m.TargetName, m.Stage, m.Mode)
			}
			return nil
		},
	}

	var target, stage, mode, notes string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a new mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, logger, err := newSession(serverURL, email, password)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer session.SignOut()

			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mission, err := session.CreateMission(ctx, target, store.Stage(stage), store.Mode(mode), notesPtr)
			if err != nil {
				return err
			}
			fmt.Printf("Mission initialized: %s (%s)\n", mission.TargetName, mission.ID)
			return nil
		},
	}
	create.Flags().StringVar(&target, "target", "", "target display name (required)")
	create.Flags().StringVar(&stage, "stage", "sighting", "stage: sighting|blanket|physical")
	create.Flags().StringVar(&mode, "mode", "home", "mode: home|away")
	create.Flags().StringVar(&notes, "notes", "", "free-text notes")
	_ = create.MarkFlagRequired("target")

	cmd.AddCommand(list, create)
	return cmd
}
