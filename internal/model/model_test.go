package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasActiveShare(t *testing.T) {
	file := FileDescriptor{ID: "f1"}
	assert.False(t, file.HasActiveShare(), "no share link")

	file.ShareLink = &ShareLink{Token: "tok", IsActive: false}
	assert.False(t, file.HasActiveShare(), "inactive link")

	file.ShareLink = &ShareLink{Token: "", IsActive: true}
	assert.False(t, file.HasActiveShare(), "active link without token")

	file.ShareLink = &ShareLink{Token: "tok", IsActive: true}
	assert.True(t, file.HasActiveShare())
}
