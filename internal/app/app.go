// Package app assembles the pieces every command needs from a Config:
// the storage backend, the lifecycle policy and the event publishers.
package app

import (
	"context"
	"fmt"

	"github.com/cafe-pos/api/internal/config"
	"github.com/cafe-pos/api/internal/database"
	"github.com/cafe-pos/api/internal/events"
	"github.com/cafe-pos/api/internal/events/rabbitmq"
	"github.com/cafe-pos/api/internal/events/sqs"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/cafe-pos/api/internal/store/memstore"
	"github.com/cafe-pos/api/internal/store/mongostore"
	"github.com/cafe-pos/api/internal/store/sqlstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Store is the full persistence surface: the lifecycle contract plus the
// staff accounts used by login.
type Store interface {
	service.Store
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// OpenStore connects to the backend selected by cfg.Backend. The returned
// func releases it.
func OpenStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		if cfg.MigrateOnStart {
			if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				return nil, nil, err
			}
			log.WithField("path", cfg.MigrationsPath).Info("migrations applied")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return database.NewStore(pool), pool.Close, nil

	case config.BackendSQL:
		s, err := sqlstore.Open(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.WithError(err).Warn("close sql store")
			}
		}, nil

	case config.BackendMongo:
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(context.Background()); err != nil {
				log.WithError(err).Warn("close mongo store")
			}
		}, nil

	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Policy maps configuration onto the lifecycle rules.
func Policy(cfg *config.Config) service.Policy {
	return service.Policy{
		BillingEligible: cfg.BillingEligible,
		AutoBilling:     cfg.AutoBilling,
		AllowOverride:   cfg.AllowPaymentOverride,
		DefaultSettings: model.Settings{
			TaxRate:           cfg.DefaultTaxRate,
			ServiceChargeRate: cfg.DefaultServiceChargeRate,
			Currency:          cfg.Currency,
			CafeName:          cfg.CafeName,
		},
	}
}

// Publishers fans events out to the log, any local publishers (the
// WebSocket hub) and the brokers enabled in cfg.
func Publishers(ctx context.Context, cfg *config.Config, log *logrus.Logger, local ...events.Publisher) (events.Publisher, func(), error) {
	pubs := events.Multi{events.LogPublisher{Log: log}}
	pubs = append(pubs, local...)
	var closers []func()

	if cfg.RabbitMQURL != "" {
		p, err := rabbitmq.Dial(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			return nil, nil, err
		}
		pubs = append(pubs, p)
		closers = append(closers, func() {
			if err := p.Close(); err != nil {
				log.WithError(err).Warn("close rabbitmq publisher")
			}
		})
		log.WithField("exchange", cfg.RabbitMQExchange).Info("publishing events to rabbitmq")
	}

	if cfg.SQSQueueURL != "" {
		p, err := sqs.New(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		pubs = append(pubs, p)
		log.WithField("queue", cfg.SQSQueueURL).Info("publishing events to sqs")
	}

	return pubs, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
