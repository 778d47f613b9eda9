package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "counters"

type counter struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

// nextSequence atomically increments the named counter and returns the new value.
func nextSequence(ctx context.Context, coll *mongo.Collection, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := coll.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"value": 1}}, opts).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return c.Value, nil
}
