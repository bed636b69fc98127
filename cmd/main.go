package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"govres/domain"
	"govres/infrastructure"
	"govres/interfaces"
	"govres/usecase"
)

var withWorkers bool

var rootCmd = &cobra.Command{
	Use:           "govres",
	Short:         "Federal resume and application helper",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  serve,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume resume processing and identity events",
	RunE:  work,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  migrate,
}

func init() {
	serveCmd.Flags().BoolVar(&withWorkers, "with-workers", true, "Also run the queue consumers in this process")
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds everything the commands share.
type app struct {
	cfg      infrastructure.Config
	log      *slog.Logger
	db       *gorm.DB
	rmq      *infrastructure.RabbitMQ
	store    infrastructure.ObjectStore
	identity *usecase.Identity
	resumes  *usecase.Resumes
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := infrastructure.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	db, err := infrastructure.NewDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	rmq, err := infrastructure.NewRabbitMQ(cfg.RabbitMQURL, log)
	if err != nil {
		return nil, err
	}
	store, err := infrastructure.NewS3Store(ctx, cfg)
	if err != nil {
		rmq.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		rmq:      rmq,
		store:    store,
		identity: usecase.NewIdentity(db, rmq, cfg.AdminEmails, log),
		resumes:  usecase.NewResumes(db, store, rmq, cfg.MaxUploadBytes, log),
	}, nil
}

func (a *app) close() {
	if err := a.rmq.Close(); err != nil {
		a.log.Warn("Failed to close RabbitMQ", "error", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *app) startWorkers(ctx context.Context) error {
	if err := infrastructure.ConsumeJSON(ctx, a.rmq, infrastructure.QueueResumeProcessing, a.resumes.Process); err != nil {
		return err
	}
	if err := infrastructure.ConsumeJSON(ctx, a.rmq, infrastructure.QueueIdentityEvents, a.identity.Handle); err != nil {
		return err
	}
	a.log.Info("Workers started", "queues", []string{infrastructure.QueueResumeProcessing, infrastructure.QueueIdentityEvents})
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	llm, err := infrastructure.NewLLM(ctx, a.cfg)
	if err != nil {
		return err
	}
	jobs := infrastructure.NewUSAJobsClient(a.cfg.USAJobsBaseURL, a.cfg.USAJobsAPIKey, a.cfg.USAJobsUserAgent)

	if withWorkers {
		if err := a.startWorkers(ctx); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	interfaces.NewHTTPHandler(router, interfaces.Services{
		Ally:       usecase.NewAlly(a.db, llm, jobs, a.log),
		Identity:   a.identity,
		Resumes:    a.resumes,
		PastJobs:   usecase.NewPastJobs(a.db, domain.PastJobTypeJob),
		Volunteers: usecase.NewPastJobs(a.db, domain.PastJobTypeVolunteer),
		Education:  usecase.NewEducation(a.db),
		Awards:     usecase.NewAwards(a.db),
	}, a.cfg, a.log)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func work(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.startWorkers(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("Worker stopping")
	return nil
}

func migrate(cmd *cobra.Command, args []string) error {
	cfg, err := infrastructure.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat)
	db, err := infrastructure.NewDatabase(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info("Migration complete")
	return nil
}
