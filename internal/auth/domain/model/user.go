package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a member profile and its login credential.
// Password only ever holds a bcrypt hash once the user is persisted.
type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FirstName string             `json:"firstName" bson:"firstName"`
	LastName  string             `json:"lastName" bson:"lastName"`
	EmailID   string             `json:"emailId" bson:"emailId"`
	Password  string             `json:"-" bson:"password"`
	Age       *int               `json:"age,omitempty" bson:"age,omitempty"`
	Gender    string             `json:"gender,omitempty" bson:"gender,omitempty"`
	About     string             `json:"about,omitempty" bson:"about,omitempty"`
	Skills    []string           `json:"skills" bson:"skills"`
	PhotoURL  string             `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeEmail returns the canonical form under which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims free-text fields, canonicalises the email and drops blank skills.
func (u *User) Normalize() {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.EmailID = NormalizeEmail(u.EmailID)
	u.Gender = strings.ToLower(strings.TrimSpace(u.Gender))
	u.About = strings.TrimSpace(u.About)
	u.PhotoURL = strings.TrimSpace(u.PhotoURL)

	skills := make([]string, 0, len(u.Skills))
	for _, s := range u.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	u.Skills = skills
}

// Sanitized returns a copy safe to hand to callers outside the auth flow.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Password = ""
	if u.Skills != nil {
		c.Skills = append([]string(nil), u.Skills...)
	}
	return &c
}
