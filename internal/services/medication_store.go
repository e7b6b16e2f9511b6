package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"medtracker/internal/database"
	"medtracker/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MedicationStore handles MongoDB CRUD for medications. Reads used by the
// today-status query go through a short TTL cache; the tick evaluator always
// reads the collection directly.
type MedicationStore struct {
	collection *mongo.Collection
	cache      *gocache.Cache
}

// NewMedicationStore creates a new medication store
func NewMedicationStore(mongodb *database.MongoDB) *MedicationStore {
	return &MedicationStore{
		collection: mongodb.Collection(database.CollectionMedications),
		cache:      gocache.New(30*time.Second, time.Minute),
	}
}

// Create validates and inserts a new medication
func (s *MedicationStore) Create(ctx context.Context, med *models.Medication) error {
	if err := med.Validate(); err != nil {
		return err
	}
	med.CreatedAt = time.Now()

	result, err := s.collection.InsertOne(ctx, med)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}

	med.ID = result.InsertedID.(primitive.ObjectID)
	s.cache.Flush()
	return nil
}

// GetByID retrieves a medication by ID
func (s *MedicationStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	var med models.Medication
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&med)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("medication: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return &med, nil
}

// Delete removes a medication. Log entries and confirmations are kept for
// audit; only the recurring definition goes away.
func (s *MedicationStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("medication: %w", ErrNotFound)
	}
	s.cache.Flush()
	return nil
}

// List returns all medications, optionally scoped to an owning account
func (s *MedicationStore) List(ctx context.Context, userID string) ([]models.Medication, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer cursor.Close(ctx)

	var meds []models.Medication
	if err := cursor.All(ctx, &meds); err != nil {
		return nil, fmt.Errorf("failed to decode medications: %w", err)
	}
	return meds, nil
}

// FindDueMedications returns every medication scheduled for the given HH:MM
// slot label. The validity-window filter happens at the evaluator.
func (s *MedicationStore) FindDueMedications(ctx context.Context, slot string) ([]models.Medication, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"times": slot})
	if err != nil {
		return nil, fmt.Errorf("failed to query due medications: %w", err)
	}
	defer cursor.Close(ctx)

	var meds []models.Medication
	if err := cursor.All(ctx, &meds); err != nil {
		return nil, fmt.Errorf("failed to decode due medications: %w", err)
	}
	return meds, nil
}

// FindActiveMedications returns a patient's medications whose start date is
// not in the future. Results are cached briefly: the today-status query can
// be polled by dashboards.
func (s *MedicationStore) FindActiveMedications(ctx context.Context, patientName, userID string) ([]models.Medication, error) {
	cacheKey := "active:" + patientName + "|" + userID
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]models.Medication), nil
	}

	filter := bson.M{
		"patient_name": patientNamePattern(patientName),
		"start_date":   bson.M{"$lte": time.Now()},
	}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query active medications: %w", err)
	}
	defer cursor.Close(ctx)

	var meds []models.Medication
	if err := cursor.All(ctx, &meds); err != nil {
		return nil, fmt.Errorf("failed to decode active medications: %w", err)
	}

	s.cache.Set(cacheKey, meds, gocache.DefaultExpiration)
	return meds, nil
}

// patientNamePattern builds the case-insensitive exact-match filter used by
// every patient-scoped query.
func patientNamePattern(patientName string) primitive.Regex {
	return primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(patientName) + "$",
		Options: "i",
	}
}
