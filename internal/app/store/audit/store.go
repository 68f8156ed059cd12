// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding visitor audit events.
const CollectionName = "visitor_audit"

// Event categories
const (
	CategoryVisitor = "visitor"
)

// Visitor event types
const (
	EventCheckedIn  = "visitor_checked_in"
	EventCheckedOut = "visitor_checked_out"
	EventUpdated    = "visitor_updated"
	EventDeleted    = "visitor_deleted"
)

// Event represents an audit event.
//
// Events never carry the visitor's name or ID number; the record ID and badge
// are enough to correlate with the front-desk log.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Which table and row
	SessionHash string `bson:"session_hash"` // truncated hash of the table key
	RecordID    string `bson:"record_id,omitempty"`
	BadgeID     string `bson:"badge_id,omitempty"`

	// Context
	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	SessionHash string
	RecordID    string
	EventType   string
	Since       *time.Time
	Limit       int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_hash", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_visitor_audit_session"),
		},
		{
			Keys:    bson.D{{Key: "record_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_visitor_audit_record"),
		},
		{
			Keys:    bson.D{{Key: "event_type", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_visitor_audit_event_type"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query := bson.M{}
	if filter.SessionHash != "" {
		query["session_hash"] = filter.SessionHash
	}
	if filter.RecordID != "" {
		query["record_id"] = filter.RecordID
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.Since != nil {
		query["created_at"] = bson.M{"$gte": *filter.Since}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ForRecord returns the history of a single visitor record as logged by one
// session. Deleted records keep their history.
func (s *Store) ForRecord(ctx context.Context, sessionHash, recordID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{SessionHash: sessionHash, RecordID: recordID, Limit: limit})
}

// DeleteBefore removes events created before cutoff and returns how many were removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
