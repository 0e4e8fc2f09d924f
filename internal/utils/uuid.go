package utils

import "github.com/google/uuid"

// UUIDGenerator issues record identifiers. Version 7 ids sort by creation
// time, which keeps insertion order readable in stores and logs.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
