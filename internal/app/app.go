package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/events"
	"github.com/Dan9191/allowance-service/internal/integrations/scoring"
	"github.com/Dan9191/allowance-service/internal/repository"
	"github.com/Dan9191/allowance-service/internal/service"
	"github.com/Dan9191/allowance-service/internal/utils/email"
)

// NewLogger builds the JSON logger shared by every component
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// OpenStore connects the configured storage backend. Postgres schemas are
// migrated and Mongo indexes created before the store is returned.
func OpenStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (service.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := repository.OpenPostgres(ctx, cfg.DBConn)
		if err != nil {
			return nil, err
		}
		if err := repository.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Connected to postgres")
		return repository.NewRepository(db), nil

	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")
		return repository.NewMongo(repository.NewMongoProvider(db), func() error {
			return client.Disconnect(context.Background())
		}), nil

	case config.StoreMemory:
		log.Warn("Using in-memory store, data will not survive a restart")
		return repository.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// NewAggregator wires the aggregator with the optional scoring collaborator,
// event publisher and alert mailer. The returned cleanup closes the publisher.
func NewAggregator(cfg *config.Config, store service.WeeklyStore, log *logrus.Logger) (*service.Aggregator, func()) {
	var scorer service.Scorer
	if cfg.Scoring.URL != "" {
		scorer = scoring.NewClient(cfg, log)
	} else {
		log.Warn("SCORING_URL not set, credit scores come from local heuristics")
	}

	agg := service.NewAggregator(store, scorer, service.NewRandomPicker(cfg.Summary.ScoreSeed), cfg.Summary.Workers, log)
	if loc, err := cfg.Location(); err == nil {
		agg.SetLocation(loc)
	}

	if cfg.AlertsEnabled() {
		agg.SetAlerter(email.NewSender(cfg, log))
	}

	cleanup := func() {}
	if cfg.AMQP.URL != "" {
		publisher, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, log)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize AMQP publisher, summary events disabled")
		} else {
			agg.SetPublisher(publisher)
			cleanup = func() { publisher.Close() }
		}
	}
	return agg, cleanup
}
