package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const migrationsCollection = "migrations"

type MigrationStatus struct {
	Name        string     `bson:"_id"`
	Status      string     `bson:"status"` // running, completed, failed
	Error       string     `bson:"error,omitempty"`
	StartedAt   time.Time  `bson:"started_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
}

type migration struct {
	name string
	run  func(ctx context.Context, db *mongo.Database) error
}

var migrations = []migration{
	{name: "indexes_v1", run: createIndexes},
	{name: "ticket_counter_v1", run: seedTicketCounter},
}

// Migrate runs every migration that has not completed yet, in order.
func Migrate(ctx context.Context, db *DB) error {
	status := db.Database.Collection(migrationsCollection)
	for _, m := range migrations {
		var current MigrationStatus
		err := status.FindOne(ctx, bson.M{"_id": m.name}).Decode(&current)
		if err == nil && current.Status == "completed" {
			continue
		}
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("get migration status %s: %w", m.name, err)
		}

		log.Infow(ctx, "running migration", "migration", m.name)
		if err := setMigrationStatus(ctx, status, m.name, "running", nil); err != nil {
			return err
		}
		if runErr := m.run(ctx, db.Database); runErr != nil {
			_ = setMigrationStatus(ctx, status, m.name, "failed", runErr)
			return fmt.Errorf("migration %s: %w", m.name, runErr)
		}
		if err := setMigrationStatus(ctx, status, m.name, "completed", nil); err != nil {
			return err
		}
	}
	return nil
}

func setMigrationStatus(ctx context.Context, coll *mongo.Collection, name, status string, cause error) error {
	now := time.Now()
	set := bson.M{"status": status}
	if cause != nil {
		set["error"] = cause.Error()
	}
	if status == "completed" {
		set["completed_at"] = now
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"started_at": now},
	}
	_, err := coll.UpdateOne(ctx, bson.M{"_id": name}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set migration status %s: %w", name, err)
	}
	return nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		models.User{}.CollectionName(): {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("idx_username").SetUnique(true)},
		},
		models.ChatSession{}.CollectionName(): {
			{Keys: bson.D{{Key: "session_uuid", Value: 1}}, Options: options.Index().SetName("idx_session_uuid").SetUnique(true)},
			{
				// one open ticket per client
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetName("idx_open_ticket_per_user").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{
						"status":  models.SessionStatusOpen,
						"user_id": bson.M{"$type": "objectId"},
					}),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_status_created")},
		},
		models.ChatMessage{}.CollectionName(): {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("idx_session_created")},
		},
		models.ClientPlan{}.CollectionName(): {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("idx_user").SetUnique(true)},
		},
		models.ClientStat{}.CollectionName(): {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("idx_user")},
		},
		models.PublicPlan{}.CollectionName(): {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("idx_name").SetUnique(true)},
		},
		models.Lead{}.CollectionName(): {
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_created")},
		},
		models.EmailOutbox{}.CollectionName(): {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}}, Options: options.Index().SetName("idx_outbox_due")},
		},
	}
	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// seedTicketCounter aligns the ticket counter with tickets created before it existed.
func seedTicketCounter(ctx context.Context, db *mongo.Database) error {
	var last models.ChatSession
	opts := options.FindOne().SetSort(bson.D{{Key: "number", Value: -1}})
	err := db.Collection(models.ChatSession{}.CollectionName()).FindOne(ctx, bson.M{}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = db.Collection(countersCollection).UpdateOne(ctx,
		bson.M{"_id": ticketCounter},
		bson.M{"$max": bson.M{"value": last.Number}},
		options.Update().SetUpsert(true),
	)
	return err
}
