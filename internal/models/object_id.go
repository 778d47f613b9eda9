package models

import (
	"database/sql/driver"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectID is used to seemlessly convert between string and primitive.ObjectID
// in Mongo, and is stored as its hex form in SQL.
//
//nolint:recvcheck // use pointer receiver to match bson.UnmarshalValue
type ObjectID string

func NewObjectID() ObjectID {
	return ObjectID(primitive.NewObjectID().Hex())
}

func (o ObjectID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	p, err := primitive.ObjectIDFromHex(string(o))
	if err != nil {
		return bson.TypeNull, nil, err
	}
	return bson.MarshalValue(p)
}

func (o *ObjectID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var p primitive.ObjectID
	err := bson.UnmarshalValue(t, data, &p)
	if err != nil {
		return err
	}
	*o = ObjectID(p.Hex())
	return nil
}

func (o ObjectID) Value() (driver.Value, error) {
	return string(o), nil
}

func (o *ObjectID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = ""
	case string:
		*o = ObjectID(v)
	case []byte:
		*o = ObjectID(v)
	default:
		return fmt.Errorf("cannot scan %T into ObjectID", src)
	}
	return nil
}

func (o ObjectID) IsZero() bool {
	return o == ""
}

// Valid reports whether o is a well formed hex object id.
func (o ObjectID) Valid() bool {
	return primitive.IsValidObjectID(string(o))
}

func (o ObjectID) String() string {
	return string(o)
}
