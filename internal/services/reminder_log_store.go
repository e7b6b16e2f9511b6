package services

import (
	"context"
	"fmt"
	"time"

	"medtracker/internal/database"
	"medtracker/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderLogStore handles MongoDB access to the reminder log. Calendar-day
// boundaries for the duplicate guard are derived in the configured reminder
// timezone.
type ReminderLogStore struct {
	collection *mongo.Collection
	loc        *time.Location
}

// NewReminderLogStore creates a new reminder log store
func NewReminderLogStore(mongodb *database.MongoDB, loc *time.Location) *ReminderLogStore {
	return &ReminderLogStore{
		collection: mongodb.Collection(database.CollectionReminderLogs),
		loc:        loc,
	}
}

// InsertIfAbsent writes the entry unless one already exists for the same
// (medication, slot, calendar day). The check-then-insert pair is safe
// because dispatch runs on a singleton tick; inbound handling never inserts.
func (s *ReminderLogStore) InsertIfAbsent(ctx context.Context, entry *models.ReminderLog) (bool, error) {
	dayStart := models.CalendarDate(entry.SentTime, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	err := s.collection.FindOne(ctx, bson.M{
		"medication_id":  entry.MedicationID,
		"scheduled_time": entry.ScheduledTime,
		"sent_time":      bson.M{"$gte": dayStart, "$lt": dayEnd},
	}).Err()
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, fmt.Errorf("failed to check for existing reminder log: %w", err)
	}

	entry.Status = models.StatusPending
	entry.ResponseReceived = false

	result, err := s.collection.InsertOne(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("failed to insert reminder log: %w", err)
	}
	entry.ID = result.InsertedID.(primitive.ObjectID)
	return true, nil
}

// FindPending returns pending entries for any of the candidate addresses
// dispatched at or after since, newest first.
func (s *ReminderLogStore) FindPending(ctx context.Context, addresses []string, since time.Time) ([]models.ReminderLog, error) {
	cursor, err := s.collection.Find(ctx, bson.M{
		"contact_number": bson.M{"$in": addresses},
		"status":         models.StatusPending,
		"sent_time":      bson.M{"$gte": since},
	}, options.Find().SetSort(bson.D{{Key: "sent_time", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminder logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.ReminderLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode pending reminder logs: %w", err)
	}
	return logs, nil
}

// TransitionStatus moves a pending entry to taken or missed. The update is
// conditional on status still being pending, so two near-simultaneous
// replies cannot both resolve the same entry.
func (s *ReminderLogStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, newStatus, responseMessage string, at time.Time) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":            newStatus,
			"response_received": true,
			"response_time":     at,
			"response_message":  responseMessage,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder log status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

// FindByPatientAndWindow returns entries dispatched within [from, to]
func (s *ReminderLogStore) FindByPatientAndWindow(ctx context.Context, patientName, userID string, from, to time.Time) ([]models.ReminderLog, error) {
	filter := bson.M{
		"patient_name": patientNamePattern(patientName),
		"sent_time":    bson.M{"$gte": from, "$lte": to},
	}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.ReminderLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode reminder logs: %w", err)
	}
	return logs, nil
}

// FindToday returns entries dispatched within [dayStart, dayEnd), sorted by
// dispatch instant ascending
func (s *ReminderLogStore) FindToday(ctx context.Context, patientName, userID string, dayStart, dayEnd time.Time) ([]models.ReminderLog, error) {
	filter := bson.M{
		"patient_name": patientNamePattern(patientName),
		"sent_time":    bson.M{"$gte": dayStart, "$lt": dayEnd},
	}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sent_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query today's reminder logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.ReminderLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode today's reminder logs: %w", err)
	}
	return logs, nil
}
