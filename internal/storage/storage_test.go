package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoObjectKey(t *testing.T) {
	key := VideoObjectKey("42", "Squat Form.MOV")
	assert.True(t, strings.HasPrefix(key, "exercises/42/"))
	assert.True(t, strings.HasSuffix(key, ".mov"))

	key = VideoObjectKey("42", "notes.txt")
	assert.True(t, strings.HasSuffix(key, ".mp4"))

	assert.NotEqual(t, VideoObjectKey("1", "a.mp4"), VideoObjectKey("1", "a.mp4"))
}

func TestVideoObjectKeyFromURL(t *testing.T) {
	base := "https://cdn.example.com/videos"
	assert.Equal(t, "exercises/1/abc.mp4", VideoObjectKeyFromURL(base, base+"/exercises/1/abc.mp4"))
	assert.Equal(t, "exercises/1/abc.mp4", VideoObjectKeyFromURL(base+"/", base+"/exercises/1/abc.mp4"))
	assert.Empty(t, VideoObjectKeyFromURL(base, "https://youtube.com/watch?v=1"))
	assert.Empty(t, VideoObjectKeyFromURL("", base+"/exercises/1/abc.mp4"))
}
