package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Workout struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Difficulty  string             `bson:"difficulty" json:"difficulty"`
	Duration    int                `bson:"duration" json:"duration"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	VideoURL    string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	IsPremium   bool               `bson:"isPremium" json:"isPremium"`
}

func (w Workout) Key() string { return w.ID.Hex() }

type TrainingPlan struct {
	ID          primitive.ObjectID   `bson:"_id" json:"_id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Workouts    []primitive.ObjectID `bson:"workouts" json:"workouts"`
}

func (p TrainingPlan) Key() string { return p.ID.Hex() }
