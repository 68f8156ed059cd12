// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	visitorstore "github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends created in ConnectDB and passed to EnsureSchema,
// Startup, BuildHandler and Shutdown.
type DBDeps struct {
	// Visitors holds every session's in-memory visitor table.
	Visitors *visitorstore.Registry

	// MongoDB client and database. Both are nil when no URI is configured.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
}

// HasMongo reports whether a MongoDB connection is available.
func (d DBDeps) HasMongo() bool {
	return d.MongoDatabase != nil
}
