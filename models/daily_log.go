package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dailyLogNamespace seeds the name-based ids of daily logs.
var dailyLogNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("countme:daily-log"))

// DailyLog aggregates everything logged on one calendar day. It is the only
// entity merged field by field during conflict resolution: line items from
// both sides are united by id and the totals recomputed.
type DailyLog struct {
	SyncMetadata

	// Date is midnight UTC of the logged day.
	Date           time.Time
	FoodEntries    []FoodEntry
	WorkoutEntries []WorkoutEntry

	TotalCalories  float64
	CaloriesBurned float64
	TotalProtein   float64
	TotalCarbs     float64
	TotalFat       float64
}

func init() {
	RegisterEntity(EntityDescriptor{
		Type:       EntityDailyLog,
		Collection: "daily_logs",
		Decode: func(doc Document) (SyncableRecord, error) {
			return DailyLogFromDocument(doc)
		},
	})
}

// NewDailyLog returns an empty log for the day containing date.
func NewDailyLog(id string, date time.Time) *DailyLog {
	return &DailyLog{
		SyncMetadata: SyncMetadata{ID: id},
		Date:         NormalizeDate(date),
	}
}

// DailyLogID is the id of the owner's log for the day containing date. Every
// device derives the same id, so logs of one day meet under one key. An empty
// owner names the log kept while signed out.
func DailyLogID(ownerID string, date time.Time) string {
	name := ownerID + "/" + NormalizeDate(date).Format(time.DateOnly)
	return uuid.NewSHA1(dailyLogNamespace, []byte(name)).String()
}

func (l *DailyLog) EntityType() EntityType { return EntityDailyLog }

func (l *DailyLog) OccurredAt() time.Time { return l.Date }

// AssignOwner stamps the log and every line item it owns.
func (l *DailyLog) AssignOwner(ownerID string) {
	l.SyncMetadata.AssignOwner(ownerID)
	for i := range l.FoodEntries {
		l.FoodEntries[i].AssignOwner(ownerID)
	}
	for i := range l.WorkoutEntries {
		l.WorkoutEntries[i].AssignOwner(ownerID)
	}
}

// Recalculate recomputes the totals from the line items. Unknown macro values
// count as zero.
func (l *DailyLog) Recalculate() {
	l.TotalCalories, l.TotalProtein, l.TotalCarbs, l.TotalFat = 0, 0, 0, 0
	l.CaloriesBurned = 0

	for _, f := range l.FoodEntries {
		l.TotalCalories += f.Calories
		l.TotalProtein += ValueOrZero(f.Protein)
		l.TotalCarbs += ValueOrZero(f.Carbs)
		l.TotalFat += ValueOrZero(f.Fat)
	}
	for _, w := range l.WorkoutEntries {
		l.CaloriesBurned += w.CaloriesBurned
	}
}

// NetCalories is consumed minus burned.
func (l *DailyLog) NetCalories() float64 {
	return l.TotalCalories - l.CaloriesBurned
}

func (l *DailyLog) ToRemoteDocument() Document {
	foods := make([]any, 0, len(l.FoodEntries))
	for i := range l.FoodEntries {
		foods = append(foods, map[string]any(l.FoodEntries[i].ToRemoteDocument()))
	}
	workouts := make([]any, 0, len(l.WorkoutEntries))
	for i := range l.WorkoutEntries {
		workouts = append(workouts, map[string]any(l.WorkoutEntries[i].ToRemoteDocument()))
	}

	return encodeMeta(l.SyncMetadata, Document{
		"date":            l.Date.UTC(),
		"food_entries":    foods,
		"workout_entries": workouts,
		"total_calories":  l.TotalCalories,
		"calories_burned": l.CaloriesBurned,
		"total_protein":   l.TotalProtein,
		"total_carbs":     l.TotalCarbs,
		"total_fat":       l.TotalFat,
	})
}

// DailyLogFromDocument decodes a remote document into a DailyLog, including
// its embedded line items.
func DailyLogFromDocument(doc Document) (*DailyLog, error) {
	meta, err := decodeMeta(doc)
	if err != nil {
		return nil, fmt.Errorf("daily log: %w", err)
	}

	l := &DailyLog{SyncMetadata: meta}
	if l.Date, err = doc.Time("date"); err != nil {
		return nil, fmt.Errorf("daily log %s: %w", meta.ID, err)
	}
	l.Date = NormalizeDate(l.Date)

	foods, err := doc.Documents("food_entries")
	if err != nil {
		return nil, fmt.Errorf("daily log %s: %w", meta.ID, err)
	}
	for _, item := range foods {
		f, err := FoodEntryFromDocument(item)
		if err != nil {
			return nil, fmt.Errorf("daily log %s: %w", meta.ID, err)
		}
		l.FoodEntries = append(l.FoodEntries, *f)
	}

	workouts, err := doc.Documents("workout_entries")
	if err != nil {
		return nil, fmt.Errorf("daily log %s: %w", meta.ID, err)
	}
	for _, item := range workouts {
		w, err := WorkoutEntryFromDocument(item)
		if err != nil {
			return nil, fmt.Errorf("daily log %s: %w", meta.ID, err)
		}
		l.WorkoutEntries = append(l.WorkoutEntries, *w)
	}

	totals := []struct {
		key string
		dst *float64
	}{
		{"total_calories", &l.TotalCalories},
		{"calories_burned", &l.CaloriesBurned},
		{"total_protein", &l.TotalProtein},
		{"total_carbs", &l.TotalCarbs},
		{"total_fat", &l.TotalFat},
	}
	for _, t := range totals {
		if *t.dst, err = doc.Float(t.key); err != nil {
			return nil, fmt.Errorf("daily log %s: %w", meta.ID, err)
		}
	}

	return l, nil
}
