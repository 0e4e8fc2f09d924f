// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

// MealIngredient is one line of a custom meal template.
type MealIngredient struct {
	ID       string
	Name     string
	Quantity float64
	Unit     string
	Calories float64
	Protein  *float64
	Carbs    *float64
	Fat      *float64
}

// CustomMeal is a reusable meal template built from ingredients. Templates are
// exempt from retention sweeps.
type CustomMeal struct {
	SyncMetadata

	Name        string
	Servings    float64
	Ingredients []MealIngredient
}

func init() {
	RegisterEntity(EntityDescriptor{
		Type:       EntityCustomMeal,
		Collection: "custom_meals",
		Decode: func(doc Document) (SyncableRecord, error) {
			return CustomMealFromDocument(doc)
		},
	})
}

func (c *CustomMeal) EntityType() EntityType { return EntityCustomMeal }

// TotalCalories sums the calories of every ingredient.
func (c *CustomMeal) TotalCalories() float64 {
	var total float64
	for _, i := range c.Ingredients {
		total += i.Calories
	}
	return total
}

// TotalProtein sums ingredient protein; unknown values count as zero.
func (c *CustomMeal) TotalProtein() float64 {
	var total float64
	for _, i := range c.Ingredients {
		total += ValueOrZero(i.Protein)
	}
	return total
}

func (c *CustomMeal) ToRemoteDocument() Document {
	ingredients := make([]any, 0, len(c.Ingredients))
	for _, i := range c.Ingredients {
		item := map[string]any{
			"id":       i.ID,
			"name":     i.Name,
			"quantity": i.Quantity,
			"unit":     i.Unit,
			"calories": i.Calories,
		}
		if i.Protein != nil {
			item["protein"] = *i.Protein
		}
		if i.Carbs != nil {
			item["carbs"] = *i.Carbs
		}
		if i.Fat != nil {
			item["fat"] = *i.Fat
		}
		ingredients = append(ingredients, item)
	}

	return encodeMeta(c.SyncMetadata, Document{
		"name":           c.Name,
		"servings":       c.Servings,
		"ingredients":    ingredients,
		"total_calories": c.TotalCalories(),
	})
}

// CustomMealFromDocument decodes a remote document into a CustomMeal.
func CustomMealFromDocument(doc Document) (*CustomMeal, error) {
	meta, err := decodeMeta(doc)
	if err != nil {
		return nil, fmt.Errorf("custom meal: %w", err)
	}

	c := &CustomMeal{SyncMetadata: meta}
	if c.Name, err = doc.String("name"); err != nil {
		return nil, fmt.Errorf("custom meal %s: %w", meta.ID, err)
	}
	if c.Servings, err = nonNegative(doc, "servings"); err != nil {
		return nil, fmt.Errorf("custom meal %s: %w", meta.ID, err)
	}

	items, err := doc.Documents("ingredients")
	if err != nil {
		return nil, fmt.Errorf("custom meal %s: %w", meta.ID, err)
	}
	for idx, item := range items {
		ing, err := decodeIngredient(item)
		if err != nil {
			return nil, fmt.Errorf("custom meal %s ingredient %d: %w", meta.ID, idx, err)
		}
		c.Ingredients = append(c.Ingredients, ing)
	}

	return c, nil
}

func decodeIngredient(doc Document) (MealIngredient, error) {
	var (
		i   MealIngredient
		err error
	)
	if i.ID, err = doc.String("id"); err != nil {
		return i, err
	}
	if i.Name, err = doc.String("name"); err != nil {
		return i, err
	}
	if i.Quantity, err = nonNegative(doc, "quantity"); err != nil {
		return i, err
	}
	if i.Unit, err = doc.OptionalString("unit"); err != nil {
		return i, err
	}
	if i.Calories, err = nonNegative(doc, "calories"); err != nil {
		return i, err
	}

	macros, err := decodeMacros(doc)
	if err != nil {
		return i, err
	}
	i.Protein, i.Carbs, i.Fat = macros.Protein, macros.Carbs, macros.Fat
	return i, nil
}
