package services

import (
	"context"
	"fmt"

	"medtracker/internal/database"
	"medtracker/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConfirmationStore handles MongoDB access to confirmation records
type ConfirmationStore struct {
	collection *mongo.Collection
}

// NewConfirmationStore creates a new confirmation store
func NewConfirmationStore(mongodb *database.MongoDB) *ConfirmationStore {
	return &ConfirmationStore{
		collection: mongodb.Collection(database.CollectionConfirmations),
	}
}

// Append inserts a confirmation record. Confirmations are never mutated.
func (s *ConfirmationStore) Append(ctx context.Context, confirmation *models.Confirmation) error {
	result, err := s.collection.InsertOne(ctx, confirmation)
	if err != nil {
		return fmt.Errorf("failed to insert confirmation: %w", err)
	}
	confirmation.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Recent returns a patient's confirmations, newest first, bounded by limit
func (s *ConfirmationStore) Recent(ctx context.Context, patientName, userID string, limit int) ([]models.Confirmation, error) {
	filter := bson.M{"patient_name": patientNamePattern(patientName)}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "confirmation_time", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmations: %w", err)
	}
	defer cursor.Close(ctx)

	var confirmations []models.Confirmation
	if err := cursor.All(ctx, &confirmations); err != nil {
		return nil, fmt.Errorf("failed to decode confirmations: %w", err)
	}
	return confirmations, nil
}
