package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppBuildInfo(t *testing.T) {
	info := NewAppBuildInfo("1.4.0", "", "abc123")

	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "N/A", info.Date)
	assert.True(t, info.Known())
	assert.Equal(t, "Build version: 1.4.0\nBuild date: N/A\nBuild commit: abc123", info.String())
}

func TestAppBuildInfo_Unknown(t *testing.T) {
	assert.False(t, NewAppBuildInfo("", "", "").Known())
}
