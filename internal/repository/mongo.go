package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dan9191/allowance-service/internal/models"
)

const (
	TransactionsCollection    = "transactions"
	PocketMoneyCollection     = "pocketmoneys"
	WeeklySummariesCollection = "weeklysummaries"
)

// Collection is the subset of *mongo.Collection used by the store
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// CollectionProvider returns collections by name
type CollectionProvider interface {
	Collection(name string) Collection
}

// MongoProvider adapts *mongo.Database to CollectionProvider
type MongoProvider struct {
	db *mongo.Database
}

// NewMongoProvider creates a provider over db
func NewMongoProvider(db *mongo.Database) *MongoProvider {
	return &MongoProvider{db: db}
}

// Collection returns the named collection
func (p *MongoProvider) Collection(name string) Collection {
	return p.db.Collection(name)
}

// ConnectMongo establishes a connection to MongoDB and verifies it
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// EnsureMongoIndexes creates the range and uniqueness indexes the store relies on
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(WeeklySummariesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "childId", Value: 1}, {Key: "weekStart", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create weekly summary index: %w", err)
	}
	for _, name := range []string{TransactionsCollection, PocketMoneyCollection} {
		_, err := db.Collection(name).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "occurredAt", Value: 1}}},
			{Keys: bson.D{{Key: "childId", Value: 1}, {Key: "occurredAt", Value: -1}}},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Mongo stores records in MongoDB collections
type Mongo struct {
	provider CollectionProvider
	closer   func() error
}

// NewMongo creates a store over provider. closer, if not nil, runs on Close.
func NewMongo(provider CollectionProvider, closer func() error) *Mongo {
	return &Mongo{provider: provider, closer: closer}
}

// Close releases the client connection
func (m *Mongo) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// CreateTransaction stores a new transaction
func (m *Mongo) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if _, err := m.provider.Collection(TransactionsCollection).InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindTransactionsInRange retrieves transactions with from <= occurredAt < to
func (m *Mongo) FindTransactionsInRange(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := m.find(ctx, TransactionsCollection, rangeFilter(from, to), ascending(), &out); err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return normalizeTransactions(out), nil
}

// FindTransactionsByChild retrieves every transaction of a child, newest first
func (m *Mongo) FindTransactionsByChild(ctx context.Context, childID string) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := m.find(ctx, TransactionsCollection, bson.M{"childId": childID}, descending("occurredAt"), &out); err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return normalizeTransactions(out), nil
}

// FindChildTransactionsInRange retrieves a child's transactions with from <= occurredAt < to
func (m *Mongo) FindChildTransactionsInRange(ctx context.Context, childID string, from, to time.Time) ([]models.Transaction, error) {
	filter := rangeFilter(from, to)
	filter["childId"] = childID

	var out []models.Transaction
	if err := m.find(ctx, TransactionsCollection, filter, ascending(), &out); err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return normalizeTransactions(out), nil
}

// CreatePocketMoney stores a new allowance grant
func (m *Mongo) CreatePocketMoney(ctx context.Context, pm *models.PocketMoney) error {
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	if _, err := m.provider.Collection(PocketMoneyCollection).InsertOne(ctx, pm); err != nil {
		return fmt.Errorf("failed to create pocket money: %w", err)
	}
	return nil
}

// FindPocketMoneyInRange retrieves grants with from <= occurredAt < to
func (m *Mongo) FindPocketMoneyInRange(ctx context.Context, from, to time.Time) ([]models.PocketMoney, error) {
	var out []models.PocketMoney
	if err := m.find(ctx, PocketMoneyCollection, rangeFilter(from, to), ascending(), &out); err != nil {
		return nil, fmt.Errorf("failed to find pocket money: %w", err)
	}
	return out, nil
}

// FindPocketMoneyByChild retrieves every grant of a child, newest first
func (m *Mongo) FindPocketMoneyByChild(ctx context.Context, childID string) ([]models.PocketMoney, error) {
	var out []models.PocketMoney
	if err := m.find(ctx, PocketMoneyCollection, bson.M{"childId": childID}, descending("occurredAt"), &out); err != nil {
		return nil, fmt.Errorf("failed to find pocket money: %w", err)
	}
	return out, nil
}

// UpsertWeeklySummary replaces the summary of the same child and week start,
// inserting it when none exists
func (m *Mongo) UpsertWeeklySummary(ctx context.Context, s *models.WeeklySummary) error {
	doc := *s
	doc.ID = ""

	filter := bson.M{"childId": s.ChildID, "weekStart": s.WeekStart}
	update := bson.M{
		"$set":         doc,
		"$setOnInsert": bson.M{"_id": uuid.NewString()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.WeeklySummary
	err := m.provider.Collection(WeeklySummariesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly summary: %w", err)
	}
	s.ID = stored.ID
	return nil
}

// FindWeeklySummariesByChild retrieves the summaries of a child, newest first
func (m *Mongo) FindWeeklySummariesByChild(ctx context.Context, childID string) ([]models.WeeklySummary, error) {
	var out []models.WeeklySummary
	if err := m.find(ctx, WeeklySummariesCollection, bson.M{"childId": childID}, descending("weekStart"), &out); err != nil {
		return nil, fmt.Errorf("failed to find weekly summaries: %w", err)
	}
	return out, nil
}

func (m *Mongo) find(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := m.provider.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

// normalizeTransactions applies the same category mapping as the SQL read path
// to documents written by other clients
func normalizeTransactions(transactions []models.Transaction) []models.Transaction {
	for i := range transactions {
		transactions[i].Category = models.NormalizeCategory(string(transactions[i].Category))
	}
	return transactions
}

func rangeFilter(from, to time.Time) bson.M {
	return bson.M{"occurredAt": bson.M{"$gte": from, "$lt": to}}
}

func ascending() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}})
}

func descending(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}})
}
