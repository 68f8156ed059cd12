// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/stratavisit/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the audit collection (if missing), tries to attach its
// JSON-Schema validator and builds its indexes. Servers that don't support
// collMod validators (e.g. some DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	name := audit.CollectionName
	if err := ensureCollection(ctx, db, name, logger); err != nil {
		problems = append(problems, name+": "+err.Error())
	} else if err := setValidator(ctx, db, name, auditSchema()); err != nil {
		if isNoSuchCommand(err) || isNotImplemented(err) {
			logger.Info("validator skipped (unsupported)", zap.String("collection", name))
		} else {
			problems = append(problems, name+": "+err.Error())
		}
	}

	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, name+" indexes: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure name exists.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	if exists, err := collectionExists(ctx, db, name); err == nil && exists {
		return nil
	}
	// Listing failed or the collection is missing: create and tolerate a race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func commandErrorMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrorMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErrorMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErrorMatches(err, 115, "not implemented", "not supported")
}

func auditSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"created_at", "category", "event_type", "session_hash"},
			"properties": bson.M{
				"created_at":   bson.M{"bsonType": "date"},
				"category":     bson.M{"enum": bson.A{audit.CategoryVisitor}},
				"event_type":   bson.M{"enum": bson.A{audit.EventCheckedIn, audit.EventCheckedOut, audit.EventUpdated, audit.EventDeleted}},
				"session_hash": bson.M{"bsonType": "string", "minLength": 1},
				"record_id":    bson.M{"bsonType": "string"},
				"badge_id":     bson.M{"bsonType": "string"},
			},
		},
	}
}
