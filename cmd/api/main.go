package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/bird"
	birdrepo "github.com/ovaphlow/pitchfork/service-bird-api/internal/bird/repo"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/config"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/observability"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/reference"
	refrepo "github.com/ovaphlow/pitchfork/service-bird-api/internal/reference/repo"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/router"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting"
	sightingrepo "github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting/repo"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/token"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-bird-api/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// init logger
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-bird-api")

	// init db
	db, err := database.Connect(cfg.Database)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := build(ctx, cfg, db, sugar)
	if err != nil {
		sugar.Fatalf("wire service: %v", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("shutting down")

		// give a short grace period for in-flight requests
		doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(doneCtx)
	})
	if err := g.Wait(); err != nil {
		sugar.Errorw("server stopped with error", "err", err)
		return
	}
	sugar.Info("goodbye")
}

// build creates the schema and wires stores, services and handlers into the router.
func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, logger *zap.SugaredLogger) (http.Handler, error) {
	users := userrepo.NewUserRepo(db)
	families, err := refrepo.NewEntryRepo(db, refrepo.Families)
	if err != nil {
		return nil, err
	}
	habitats, err := refrepo.NewEntryRepo(db, refrepo.Habitats)
	if err != nil {
		return nil, err
	}
	birds := birdrepo.NewBirdRepo(db)
	sightings := sightingrepo.NewSightingRepo(db)

	// order follows the foreign keys
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", users.EnsureTables},
		{"families", families.EnsureTable},
		{"habitats", habitats.EnsureTable},
		{"birds", birds.EnsureTables},
		{"sightings", sightings.EnsureTables},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s schema: %w", s.name, err)
		}
	}

	codec, err := token.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer, token.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	policy, err := router.NewPolicy()
	if err != nil {
		return nil, err
	}
	metrics := observability.NewMetrics()

	userSvc := user.NewUserService(users, user.BcryptHasher{Cost: cfg.BcryptCost}, codec,
		utilities.NewIDGenerator(cfg.SnowflakeNode), logger)
	filter := security.NewFilter(codec, userSvc, logger, metrics)

	h := router.Handlers{
		Users:     user.NewHandler(userSvc, logger, metrics),
		Families:  reference.NewHandler(reference.NewService(families, "family"), logger),
		Habitats:  reference.NewHandler(reference.NewService(habitats, "habitat"), logger),
		Birds:     bird.NewHandler(bird.NewService(birds), logger),
		Sightings: sighting.NewHandler(sighting.NewService(sightings), logger),
	}
	opts := router.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		LoginRate:      cfg.HTTP.LoginRate,
		Dev:            cfg.Log.Dev,
	}
	return router.RegisterRoutes(logger, opts, filter, policy, metrics, h), nil
}
