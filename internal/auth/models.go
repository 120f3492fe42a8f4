package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity record persisted in the users collection. Password
// holds the bcrypt hash at rest; reads that leave this package exclude it
// at the query level, never by redacting after the fact.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Role      UserRole           `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// TokenPair is the result of a successful registration, login, or refresh.
// The refresh token travels only in an HTTP-only cookie; the access token
// only in the JSON body.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
}
