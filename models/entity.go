package models

import (
	"fmt"
	"sort"
	"sync"
)

// EntityType tags each kind of synchronized record.
type EntityType string

const (
	EntityFoodEntry    EntityType = "food_entry"
	EntityDailyLog     EntityType = "daily_log"
	EntityCustomMeal   EntityType = "custom_meal"
	EntityWorkoutEntry EntityType = "workout_entry"
)

// EntityDescriptor binds an entity type to its remote collection and the
// decoder that turns a remote document back into a record.
type EntityDescriptor struct {
	Type       EntityType
	Collection string
	Decode     func(doc Document) (SyncableRecord, error)
}

var (
	registryMu   sync.RWMutex
	byType       = map[EntityType]EntityDescriptor{}
	byCollection = map[string]EntityDescriptor{}
)

// RegisterEntity makes an entity type known to the sync core. Each entity
// file registers itself from init.
func RegisterEntity(d EntityDescriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	byType[d.Type] = d
	byCollection[d.Collection] = d
}

// Describe returns the descriptor registered for t.
func Describe(t EntityType) (EntityDescriptor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := byType[t]
	if !ok {
		return EntityDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
	}
	return d, nil
}

// DescribeCollection returns the descriptor registered for a remote
// collection name.
func DescribeCollection(collection string) (EntityDescriptor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := byCollection[collection]
	if !ok {
		return EntityDescriptor{}, fmt.Errorf("%w: collection %q", ErrUnknownEntityType, collection)
	}
	return d, nil
}

// Entities lists all registered descriptors ordered by collection name.
func Entities() []EntityDescriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]EntityDescriptor, 0, len(byType))
	for _, d := range byType {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}

// DecodeDocument decodes doc as an entity of type t.
func DecodeDocument(t EntityType, doc Document) (SyncableRecord, error) {
	d, err := Describe(t)
	if err != nil {
		return nil, err
	}
	return d.Decode(doc)
}

// CollectionOf returns the remote collection for t.
func CollectionOf(t EntityType) (string, error) {
	d, err := Describe(t)
	if err != nil {
		return "", err
	}
	return d.Collection, nil
}
