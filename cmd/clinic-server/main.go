package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinic/internal/api"
	"github.com/ehr/clinic/internal/config"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/events"
	"github.com/ehr/clinic/internal/platform/metrics"
	"github.com/ehr/clinic/internal/platform/middleware"
	"github.com/ehr/clinic/internal/platform/sandbox"
	"github.com/ehr/clinic/internal/platform/webhook"
	"github.com/ehr/clinic/internal/registry"
	"github.com/ehr/clinic/internal/roles"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic management API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(fixtureCmd())
	root.AddCommand(reportCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func fixtureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Validate or generate seed fixtures",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load a fixture into an empty clinic and print what it created",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			f, err := readFixture(file)
			if err != nil {
				return err
			}
			_, res, err := seededService(f, 4)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	validate.Flags().String("file", "", "fixture YAML file (default: built-in demo data)")
	cmd.AddCommand(validate)

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print a randomly generated fixture as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sandbox.DefaultSeedConfig()
			cfg.PatientCount, _ = cmd.Flags().GetInt("patients")
			cfg.DoctorCount, _ = cmd.Flags().GetInt("doctors")
			cfg.SupplyCount, _ = cmd.Flags().GetInt("supplies")
			cfg.Seed, _ = cmd.Flags().GetInt64("seed")
			out, err := sandbox.NewDataGenerator(cfg.Seed).Generate(cfg).Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	def := sandbox.DefaultSeedConfig()
	generate.Flags().Int("patients", def.PatientCount, "number of patients")
	generate.Flags().Int("doctors", def.DoctorCount, "number of doctors")
	generate.Flags().Int("supplies", def.SupplyCount, "number of supplies")
	generate.Flags().Int64("seed", 1, "random seed")
	cmd.AddCommand(generate)

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the financial report of a fixture for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			f, err := readFixture(file)
			if err != nil {
				return err
			}
			svc, _, err := seededService(f, 4)
			if err != nil {
				return err
			}
			desk := svc.Registry().UsersByRole(identity.RoleReceptionist)
			if len(desk) == 0 {
				return fmt.Errorf("fixture has no receptionist")
			}
			r, err := svc.Receptionist(desk[0]["id"].(int))
			if err != nil {
				return err
			}
			report, err := r.GenerateFinancialReport(from, to)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().String("file", "", "fixture YAML file (default: built-in demo data)")
	cmd.Flags().String("from", "", "start date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "end date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func readFixture(path string) (*sandbox.Fixture, error) {
	if path == "" {
		return sandbox.DemoFixture()
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer fh.Close()
	return sandbox.LoadFixture(fh)
}

func seededService(f *sandbox.Fixture, cost int) (*roles.Service, *sandbox.SeedResult, error) {
	reg := registry.New()
	hasher := auth.NewBcryptHasher(cost)
	res, err := sandbox.NewSeeder(reg, hasher, zerolog.Nop()).Apply(f)
	if err != nil {
		return nil, nil, err
	}
	return roles.NewService(reg, hasher), res, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}
	return logger
}

// server is the assembled application; close releases what it started.
type server struct {
	echo  *echo.Echo
	close func(context.Context) error
}

func newServer(cfg *config.Config, logger zerolog.Logger) (*server, error) {
	collector := metrics.NewCollector(nil)

	// Event sinks
	hooks := webhook.NewManager(webhook.NewStore(0), webhook.WithLogger(logger))
	publishers := events.Fanout{hooks}
	closers := []func(context.Context) error{hooks.Close}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kcfg := events.KafkaConfig{Brokers: brokers, Topic: cfg.KafkaTopic}
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(kcfg), kcfg, logger, collector)
		publishers = append(publishers, kp)
		closers = append(closers, kp.Close)
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	}
	closeAll := func(ctx context.Context) error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c(ctx))
		}
		return errors.Join(errs...)
	}

	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithSelector(registry.NewRandomSelector(cfg.PharmacistSelectionSeed)),
		registry.WithObserver(collector),
		registry.WithPublisher(publishers),
	)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	svc := roles.NewService(reg, hasher)
	seeder := sandbox.NewSeeder(reg, hasher, logger)

	if err := seed(cfg, seeder); err != nil {
		_ = closeAll(context.Background())
		return nil, err
	}

	revocations := auth.NewTokenRevocationStore(time.Minute)
	jwtCfg := auth.JWTConfig{
		Issuer:      cfg.JWTIssuer,
		SigningKey:  []byte(cfg.JWTSecret),
		TTL:         cfg.TokenTTL,
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(cfg.HSTSEnabled))
	e.Use(collector.Middleware())

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg, func() (int, string) {
			u, ok := reg.UserByUsername(cfg.DevUser)
			if !ok {
				return 0, ""
			}
			return u.ID(), string(u.Role())
		}))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	apiGroup := e.Group("/api")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiGroup.Use(middleware.RateLimit(rateLimitCfg))

	api.NewHandler(svc, auth.NewIssuer(jwtCfg), revocations, logger).RegisterRoutes(apiGroup)

	admin := apiGroup.Group("/admin", auth.RequireRole("admin"))
	sandbox.NewSeedHandler(seeder).RegisterRoutes(admin.Group("/sandbox"))
	webhook.NewHandler(hooks).RegisterRoutes(admin.Group("/webhooks"))

	return &server{
		echo: e,
		close: func(ctx context.Context) error {
			revocations.Close()
			return closeAll(ctx)
		},
	}, nil
}

// seed loads SEED_FILE when set, otherwise the demo data when SEED_DEMO is on.
func seed(cfg *config.Config, seeder *sandbox.Seeder) error {
	var (
		f   *sandbox.Fixture
		err error
	)
	switch {
	case cfg.SeedFile != "":
		f, err = readFixture(cfg.SeedFile)
	case cfg.SeedDemo:
		f, err = sandbox.DemoFixture()
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading seed fixture: %w", err)
	}
	if _, err := seeder.Apply(f); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	return nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	srv, err := newServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.echo.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := srv.close(ctx); err != nil {
		logger.Error().Err(err).Msg("closing event publishers")
	}
	logger.Info().Msg("server stopped")
	return nil
}
