package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"argus/config"
	"argus/core"
)

// Collection names in the entity store.
const (
	collSecurityEvents   = "security_events"
	collEndpoints        = "endpoints"
	collEndpointEvents   = "endpoint_events"
	collBlockedIPs       = "blocked_ips"
	collCorrelationRules = "correlation_rules"
	collIncidents        = "correlated_incidents"
	collNotifications    = "notifications"
)

// MongoStore is the MongoDB-backed entity store adapter.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	logger  *zap.SugaredLogger
	timeout time.Duration
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.MongoDB.URI)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:  client,
		db:      client.Database(cfg.MongoDB.Database),
		logger:  logger,
		timeout: cfg.MongoTimeout(),
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the engine's queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		collSecurityEvents: {
			Keys: bson.D{{Key: "created_date", Value: -1}},
		},
		collEndpointEvents: {
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		collIncidents: {
			Keys: bson.D{{Key: "rule_id", Value: 1}, {Key: "correlation_key", Value: 1}},
		},
	}
	for coll, model := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// GetRecentSecurityEvents returns events created at or after since,
// newest first, capped at limit.
func (s *MongoStore) GetRecentSecurityEvents(ctx context.Context, since time.Time, limit int) ([]core.SecurityEvent, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	filter := bson.M{"created_date": bson.M{"$gte": since}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_date", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(collSecurityEvents).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []core.SecurityEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode security events: %w", err)
	}
	return events, nil
}

// GetEndpoints returns up to limit endpoints.
func (s *MongoStore) GetEndpoints(ctx context.Context, limit int) ([]core.Endpoint, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	opts := options.Find().SetLimit(int64(limit))
	cursor, err := s.db.Collection(collEndpoints).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoints: %w", err)
	}
	defer cursor.Close(ctx)

	var endpoints []core.Endpoint
	if err := cursor.All(ctx, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to decode endpoints: %w", err)
	}
	return endpoints, nil
}

// GetRecentEndpointEvents returns endpoint events at or after since,
// newest first, capped at limit.
func (s *MongoStore) GetRecentEndpointEvents(ctx context.Context, since time.Time, limit int) ([]core.EndpointEvent, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	filter := bson.M{"timestamp": bson.M{"$gte": since}}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(collEndpointEvents).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoint events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []core.EndpointEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode endpoint events: %w", err)
	}
	return events, nil
}

// GetActiveBlockedIPs returns block-list entries flagged active. Expiry is
// evaluated by the caller against the run's reference time.
func (s *MongoStore) GetActiveBlockedIPs(ctx context.Context) ([]core.BlockedIP, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cursor, err := s.db.Collection(collBlockedIPs).Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked ips: %w", err)
	}
	defer cursor.Close(ctx)

	var blocked []core.BlockedIP
	if err := cursor.All(ctx, &blocked); err != nil {
		return nil, fmt.Errorf("failed to decode blocked ips: %w", err)
	}
	return blocked, nil
}

// GetEnabledCorrelationRules returns all enabled rules.
func (s *MongoStore) GetEnabledCorrelationRules(ctx context.Context) ([]core.CorrelationRule, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cursor, err := s.db.Collection(collCorrelationRules).Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []core.CorrelationRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode correlation rules: %w", err)
	}
	return rules, nil
}

// GetCorrelationRule fetches one rule by id.
func (s *MongoStore) GetCorrelationRule(ctx context.Context, id string) (*core.CorrelationRule, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rule core.CorrelationRule
	err := s.db.Collection(collCorrelationRules).FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correlation rule %s: %w", id, err)
	}
	return &rule, nil
}

// UpsertCorrelationRule inserts or replaces a rule by id.
func (s *MongoStore) UpsertCorrelationRule(ctx context.Context, rule *core.CorrelationRule) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := s.db.Collection(collCorrelationRules).ReplaceOne(ctx, bson.M{"_id": rule.ID}, rule, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert correlation rule %s: %w", rule.ID, err)
	}
	return nil
}

// RecordRuleTrigger increments trigger_count and sets last_triggered.
func (s *MongoStore) RecordRuleTrigger(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"trigger_count": 1},
		"$set": bson.M{"last_triggered": at},
	}
	res, err := s.db.Collection(collCorrelationRules).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to record trigger for rule %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// CreateIncident persists a produced incident.
func (s *MongoStore) CreateIncident(ctx context.Context, incident *core.CorrelatedIncident) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db.Collection(collIncidents).InsertOne(ctx, incident); err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// CreateNotification persists an outbound notification record.
func (s *MongoStore) CreateNotification(ctx context.Context, notification *core.Notification) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db.Collection(collNotifications).InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}
