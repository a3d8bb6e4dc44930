package storage

import "context"

// ImageUploader defines the interface for uploading user images
// This interface allows for easy mocking in tests
type ImageUploader interface {
	UploadImage(ctx context.Context, imageData []byte, folder, userID, originalFilename string) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

// Ensure S3Uploader implements ImageUploader
var _ ImageUploader = (*S3Uploader)(nil)
