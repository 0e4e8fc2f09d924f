// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// MealKind is the meal a food entry was logged under.
type MealKind string

const (
	MealBreakfast MealKind = "breakfast"
	MealLunch     MealKind = "lunch"
	MealDinner    MealKind = "dinner"
	MealSnack     MealKind = "snack"
)

// ParseMealKind validates a raw meal value.
func ParseMealKind(raw string) (MealKind, error) {
	switch m := MealKind(raw); m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown meal %q", ErrMalformedDocument, raw)
}

// Macros holds the optional nutrient values of a food item. A nil field means
// the value is unknown, which is different from an explicit zero.
type Macros struct {
	Protein *float64
	Carbs   *float64
	Fat     *float64
	Fiber   *float64
	Sugar   *float64
	Sodium  *float64
}

// FoodEntry is one consumed food item.
type FoodEntry struct {
	SyncMetadata
	Macros

	Name        string
	Calories    float64
	ServingSize float64
	ServingUnit string
	Meal        MealKind
	ConsumedAt  time.Time
}

func init() {
	RegisterEntity(EntityDescriptor{
		Type:       EntityFoodEntry,
		Collection: "food_entries",
		Decode: func(doc Document) (SyncableRecord, error) {
			return FoodEntryFromDocument(doc)
		},
	})
}

// EntityType implements SyncableRecord.
func (f *FoodEntry) EntityType() EntityType { return EntityFoodEntry }

// OccurredAt implements Dated.
func (f *FoodEntry) OccurredAt() time.Time { return f.ConsumedAt }

// ToRemoteDocument implements SyncableRecord.
func (f *FoodEntry) ToRemoteDocument() Document {
	doc := encodeMeta(f.SyncMetadata, Document{
		"name":         f.Name,
		"calories":     f.Calories,
		"serving_size": f.ServingSize,
		"serving_unit": f.ServingUnit,
		"meal":         string(f.Meal),
		"consumed_at":  f.ConsumedAt.UTC(),
	})
	f.Macros.encode(doc)
	return doc
}

// FoodEntryFromDocument decodes a remote document into a FoodEntry.
func FoodEntryFromDocument(doc Document) (*FoodEntry, error) {
	meta, err := decodeMeta(doc)
	if err != nil {
		return nil, fmt.Errorf("food entry: %w", err)
	}

	f := &FoodEntry{SyncMetadata: meta}
	if f.Name, err = doc.String("name"); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}
	if f.Calories, err = nonNegative(doc, "calories"); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}
	if f.ServingSize, err = nonNegative(doc, "serving_size"); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}
	if f.ServingUnit, err = doc.OptionalString("serving_unit"); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}

	meal, err := doc.String("meal")
	if err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}
	if f.Meal, err = ParseMealKind(meal); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}
	if f.ConsumedAt, err = doc.Time("consumed_at"); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}
	if f.Macros, err = decodeMacros(doc); err != nil {
		return nil, fmt.Errorf("food entry %s: %w", meta.ID, err)
	}

	return f, nil
}

func (m Macros) encode(doc Document) {
	put := func(key string, v *float64) {
		if v != nil {
			doc[key] = *v
		}
	}
	put("protein", m.Protein)
	put("carbs", m.Carbs)
	put("fat", m.Fat)
	put("fiber", m.Fiber)
	put("sugar", m.Sugar)
	put("sodium", m.Sodium)
}

func decodeMacros(doc Document) (Macros, error) {
	var m Macros
	fields := []struct {
		key string
		dst **float64
	}{
		{"protein", &m.Protein},
		{"carbs", &m.Carbs},
		{"fat", &m.Fat},
		{"fiber", &m.Fiber},
		{"sugar", &m.Sugar},
		{"sodium", &m.Sodium},
	}
	for _, f := range fields {
		v, err := doc.OptionalFloat(f.key)
		if err != nil {
			return m, err
		}
		if v != nil && *v < 0 {
			return m, fmt.Errorf("%w: negative %q", ErrMalformedDocument, f.key)
		}
		*f.dst = v
	}
	return m, nil
}

func nonNegative(doc Document, key string) (float64, error) {
	v, err := doc.Float(key)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %q", ErrMalformedDocument, key)
	}
	return v, nil
}

// ValueOrZero treats an absent optional value as zero, the rule every
// aggregate follows.
func ValueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Float returns a pointer to v, handy for filling optional fields.
func Float(v float64) *float64 {
	return &v
}
