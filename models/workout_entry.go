package models

import (
	"fmt"
	"time"
)

// ExerciseKind classifies a workout.
type ExerciseKind string

const (
	ExerciseRunning  ExerciseKind = "running"
	ExerciseCycling  ExerciseKind = "cycling"
	ExerciseSwimming ExerciseKind = "swimming"
	ExerciseWalking  ExerciseKind = "walking"
	ExerciseStrength ExerciseKind = "strength"
	ExerciseYoga     ExerciseKind = "yoga"
	ExerciseHIIT     ExerciseKind = "hiit"
	ExerciseOther    ExerciseKind = "other"
)

// Intensity is the self-reported effort of a workout.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
)

func parseExerciseKind(raw string) (ExerciseKind, error) {
	switch k := ExerciseKind(raw); k {
	case ExerciseRunning, ExerciseCycling, ExerciseSwimming, ExerciseWalking,
		ExerciseStrength, ExerciseYoga, ExerciseHIIT, ExerciseOther:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown exercise %q", ErrMalformedDocument, raw)
}

func parseIntensity(raw string) (Intensity, error) {
	switch i := Intensity(raw); i {
	case IntensityLow, IntensityModerate, IntensityHigh:
		return i, nil
	}
	return "", fmt.Errorf("%w: unknown intensity %q", ErrMalformedDocument, raw)
}

// WorkoutEntry is one logged exercise session.
type WorkoutEntry struct {
	SyncMetadata

	Exercise        ExerciseKind
	Intensity       Intensity
	DurationMinutes float64
	CaloriesBurned  float64
	Notes           string
	PerformedAt     time.Time
}

func init() {
	RegisterEntity(EntityDescriptor{
		Type:       EntityWorkoutEntry,
		Collection: "workout_entries",
		Decode: func(doc Document) (SyncableRecord, error) {
			return WorkoutEntryFromDocument(doc)
		},
	})
}

func (w *WorkoutEntry) EntityType() EntityType { return EntityWorkoutEntry }

func (w *WorkoutEntry) OccurredAt() time.Time { return w.PerformedAt }

func (w *WorkoutEntry) ToRemoteDocument() Document {
	doc := encodeMeta(w.SyncMetadata, Document{
		"exercise":         string(w.Exercise),
		"intensity":        string(w.Intensity),
		"duration_minutes": w.DurationMinutes,
		"calories_burned":  w.CaloriesBurned,
		"performed_at":     w.PerformedAt.UTC(),
	})
	if w.Notes != "" {
		doc["notes"] = w.Notes
	}
	return doc
}

// WorkoutEntryFromDocument decodes a remote document into a WorkoutEntry.
func WorkoutEntryFromDocument(doc Document) (*WorkoutEntry, error) {
	meta, err := decodeMeta(doc)
	if err != nil {
		return nil, fmt.Errorf("workout entry: %w", err)
	}

	w := &WorkoutEntry{SyncMetadata: meta}

	exercise, err := doc.String("exercise")
	if err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}
	if w.Exercise, err = parseExerciseKind(exercise); err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}

	intensity, err := doc.String("intensity")
	if err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}
	if w.Intensity, err = parseIntensity(intensity); err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}

	if w.DurationMinutes, err = nonNegative(doc, "duration_minutes"); err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}
	if w.CaloriesBurned, err = nonNegative(doc, "calories_burned"); err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}
	if w.Notes, err = doc.OptionalString("notes"); err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}
	if w.PerformedAt, err = doc.Time("performed_at"); err != nil {
		return nil, fmt.Errorf("workout entry %s: %w", meta.ID, err)
	}

	return w, nil
}
