package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/viper"

	"wanderlust/internal/config"
	"wanderlust/internal/domain"
	"wanderlust/internal/integrations/assistant"
	"wanderlust/internal/integrations/booking"
	"wanderlust/internal/integrations/outcomebus"
	"wanderlust/internal/integrations/paramstore"
	"wanderlust/internal/repository"
	"wanderlust/internal/usecase"
)

// app is one wired session: clients, controllers and whatever must be closed
// when the command returns.
type app struct {
	cfg           config.Config
	logger        *slog.Logger
	userID        string
	history       *usecase.History
	notifications *usecase.NotificationQueue
	saga          *usecase.SagaController
	conversation  *usecase.Conversation
	journal       *repository.Client
	closers       []io.Closer
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func wireApp(ctx context.Context, v *viper.Viper, logOut io.Writer) (*app, error) {
	// ---- Configuration (read only here) ----
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger := newLogger(logOut, cfg.LogLevel)
	a := &app{cfg: cfg, logger: logger, userID: cfg.UserID}

	// ---- AWS SDK config, only when something needs it ----
	var params *paramstore.Client
	if cfg.SSMEnabled() || cfg.JournalEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		if cfg.SSMEnabled() {
			params, err = paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, fmt.Errorf("create SSM client: %w", err)
			}
		}
		if cfg.JournalEnabled() {
			a.journal, err = repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.JournalTable, cfg.JournalTTL)
			if err != nil {
				return nil, fmt.Errorf("create journal client: %w", err)
			}
		}
	}

	// ---- Clients ----
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	assistantOpts := []assistant.Option{assistant.WithHTTPClient(httpClient)}
	bookingOpts := []booking.Option{booking.WithHTTPClient(httpClient)}
	if params != nil {
		tokens, err := paramstore.NewTokenSource(params, paramstore.Join(cfg.ParamPrefix, "api_token"))
		if err != nil {
			return nil, fmt.Errorf("create token source: %w", err)
		}
		assistantOpts = append(assistantOpts, assistant.WithTokenSource(tokens))
		bookingOpts = append(bookingOpts, booking.WithTokenSource(tokens))

		if a.userID == "" {
			id, err := params.GetParameter(ctx, paramstore.Join(cfg.ParamPrefix, "user_id"))
			if err != nil {
				logger.Warn("user id lookup failed, using a session id", "err", err)
			}
			a.userID = id
		}
	}
	if a.userID == "" {
		a.userID = config.SessionUserID()
	}

	assistantClient, err := assistant.NewClient(cfg.AssistantURL, assistantOpts...)
	if err != nil {
		return nil, fmt.Errorf("create assistant client: %w", err)
	}
	bookingClient, err := booking.NewClient(cfg.BookingURL, bookingOpts...)
	if err != nil {
		return nil, fmt.Errorf("create booking client: %w", err)
	}

	sagaOpts := []usecase.SagaOption{
		usecase.WithProgressStep(cfg.ProgressStep),
		usecase.WithLogger(logger),
		usecase.WithStageListener(func(token string, stage domain.SagaStage) {
			logger.Debug("saga stage", "token", token, "stage", stage)
		}),
	}
	if cfg.PublisherEnabled() {
		pub, err := outcomebus.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			// Outcome events are best effort; a dead broker must not block booking.
			logger.Warn("outcome publisher disabled", "err", err)
		} else {
			a.closers = append(a.closers, pub)
			sagaOpts = append(sagaOpts, usecase.WithPublisher(pub))
		}
	}

	// ---- Controllers ----
	var journal usecase.Journal
	if a.journal != nil {
		journal = a.journal
	}
	a.history = usecase.NewHistory("", journal, logger)
	a.notifications = usecase.NewNotificationQueue(usecase.SystemClock{}, cfg.NotificationTTL)
	a.saga, err = usecase.NewSagaController(usecase.SagaDeps{
		Booking:       bookingClient,
		History:       a.history,
		Notifications: a.notifications,
		Gate:          usecase.NewGate(),
		UserID:        a.userID,
	}, sagaOpts...)
	if err != nil {
		return nil, fmt.Errorf("create saga controller: %w", err)
	}
	a.conversation, err = usecase.NewConversation(usecase.ConversationDeps{
		Assistant: assistantClient,
		History:   a.history,
		Saga:      a.saga,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	logger.Debug("session wired",
		"session", a.history.SessionID(),
		"user", a.userID,
		"journal", cfg.JournalEnabled(),
		"publisher", len(a.closers) > 0,
	)
	return a, nil
}

func (a *app) Close() error {
	a.saga.Close()
	a.notifications.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
