package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/pkg/config"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/logger"
	"github.com/johsantss21/Thays-admin/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxRetryDelay         = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
}

// Service relays outbox rows to Pub/Sub. Messages carry the aggregate id as
// ordering key, so consumers see one order's or subscription's events in
// commit order.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	repo         outboxRepository
	registry     registryResolver
	topics       *topicPublishers
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = orderedPublisherFactory(params.PubSub)
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		registry:     params.Registry,
		topics:       newTopicPublishers(factory),
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

// Run relays batches until ctx is cancelled. A full clean batch is followed
// immediately by the next one. Otherwise the loop waits pollInterval, or a
// doubling delay capped at maxRetryDelay after a batch error.
func (s *Service) Run(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	delay := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		stats, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			delay = nextRetryDelay(delay, s.pollInterval, maxRetryDelay)
		} else {
			delay = s.pollInterval
			if stats.fetched == s.batchSize && stats.failed == 0 && stats.deferred == 0 {
				continue
			}
		}

		if err := sleepContext(ctx, withJitter(delay)); err != nil {
			return err
		}
	}
}

// Close flushes and stops every topic publisher.
func (s *Service) Close() {
	s.topics.stopAll()
}

type batchStats struct {
	fetched   int
	published int
	failed    int
	deferred  int
	parked    int
}

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"fetched":   b.fetched,
		"published": b.published,
		"failed":    b.failed,
		"deferred":  b.deferred,
		"parked":    b.parked,
	}
}

// processBatch publishes one locked batch. Rows arrive oldest first; once an
// aggregate's event fails, its later events in the batch are deferred
// untouched so they cannot overtake it.
func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		stats = batchStats{fetched: len(events)}

		held := make(map[uuid.UUID]uuid.UUID)
		for _, event := range events {
			evCtx := s.logg.WithFields(ctx, eventFields(event))

			if blocker, ok := held[event.AggregateID]; ok {
				stats.deferred++
				s.logg.Debug(s.logg.WithField(evCtx, "blocked_by", blocker.String()), "outbox event deferred behind failed aggregate event")
				continue
			}

			switch outcome, err := s.relay(evCtx, event); outcome {
			case relayPublished:
				if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
					return fmt.Errorf("mark published %s: %w", event.ID, err)
				}
				stats.published++
			case relayParked:
				s.logg.Warn(s.logg.WithField(evCtx, "error", err.Error()), "outbox event parked")
				if err := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); err != nil {
					return fmt.Errorf("mark terminal %s: %w", event.ID, err)
				}
				stats.parked++
			case relayRetry:
				s.logg.Warn(s.logg.WithFields(evCtx, map[string]any{
					"error":         err.Error(),
					"attempt_count": event.AttemptCount + 1,
				}), "outbox publish failed")
				if err := s.repo.MarkFailedTx(tx, event.ID, err); err != nil {
					return fmt.Errorf("mark failure %s: %w", event.ID, err)
				}
				held[event.AggregateID] = event.ID
				stats.failed++
			}
		}
		return nil
	})
	if err == nil && stats.fetched > 0 {
		s.logg.Info(s.logg.WithFields(ctx, stats.fields()), "outbox batch relayed")
	}
	return stats, err
}

type relayOutcome int

const (
	relayPublished relayOutcome = iota
	relayRetry
	relayParked
)

// relay resolves and publishes one row. Undecodable rows, unroutable topics
// and rows on their last attempt are parked; other failures are retried.
func (s *Service) relay(ctx context.Context, event models.OutboxEvent) (relayOutcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return relayParked, err
	}

	topic := resolved.Descriptor.Topic
	pub := s.topics.get(topic)
	if pub == nil {
		return relayParked, fmt.Errorf("publisher not configured for topic %s", topic)
	}

	msg := newMessage(event, resolved)
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return relayParked, fmt.Errorf("publisher returned nil for topic %s", topic)
	}
	serverID, err := result.Get(publishCtx)
	if err == nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"topic": topic, "message_id": serverID}), "outbox event published")
		return relayPublished, nil
	}

	// A failed ordered publish pauses its key; resume so the next batch can
	// retry this aggregate from the failed event.
	pub.ResumePublish(msg.OrderingKey)

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return relayParked, err
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return relayParked, fmt.Errorf("max publish attempts reached: %w", err)
	}
	return relayRetry, err
}

func newMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"schema_version": fmt.Sprintf("%d", resolved.Envelope.Version),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextRetryDelay(current, base, limit time.Duration) time.Duration {
	if current < base {
		current = base
	}
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
