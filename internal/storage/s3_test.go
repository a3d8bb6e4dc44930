package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPG", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".png", "image/png"},
		{".PNG", "image/png"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".svg", "image/svg+xml"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
		{".bmp", "application/octet-stream"}, // Not supported
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			result := getContentType(tt.extension)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestUploadResultStruct(t *testing.T) {
	result := UploadResult{
		Key:    "posts/2026/01/user123/abc123.jpg",
		URL:    "https://cdn.example.com/posts/2026/01/user123/abc123.jpg",
		Bucket: "my-bucket",
		Region: "us-east-1",
		Size:   1024000,
	}

	assert.Equal(t, "posts/2026/01/user123/abc123.jpg", result.Key)
	assert.Equal(t, "https://cdn.example.com/posts/2026/01/user123/abc123.jpg", result.URL)
	assert.Equal(t, "my-bucket", result.Bucket)
	assert.Equal(t, "us-east-1", result.Region)
	assert.Equal(t, int64(1024000), result.Size)
}

func TestS3UploaderStruct(t *testing.T) {
	uploader := &S3Uploader{
		bucket:  "test-bucket",
		region:  "us-west-2",
		baseURL: "https://cdn.test.com",
	}

	assert.Equal(t, "test-bucket", uploader.bucket)
	assert.Equal(t, "us-west-2", uploader.region)
	assert.Equal(t, "https://cdn.test.com", uploader.baseURL)
}
