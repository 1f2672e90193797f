package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a user's comment on a report
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Report    primitive.ObjectID `bson:"report" json:"report"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	UserName  string             `bson:"userName,omitempty" json:"userName,omitempty"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
