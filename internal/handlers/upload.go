package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/util"
)

// maxImageSize caps uploads at 10 MB
const maxImageSize = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadImage accepts a multipart image and stores it in S3. The
// optional "folder" field routes post images and avatars to separate
// prefixes.
// POST /api/v1/upload
func (h *Handlers) UploadImage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if h.uploader == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("image uploads"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		util.RespondBadRequest(c, "missing file field")
		return
	}
	defer file.Close()

	if err := util.ValidateFilename(header.Filename); err != nil {
		util.RespondValidationError(c, "file", err.Error())
		return
	}

	if header.Size > maxImageSize {
		util.RespondValidationError(c, "file", "image exceeds the 10MB limit")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		util.RespondInternalError(c, "failed to read upload")
		return
	}
	if len(data) > maxImageSize {
		util.RespondValidationError(c, "file", "image exceeds the 10MB limit")
		return
	}

	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		util.RespondValidationError(c, "file", "unsupported image type "+contentType)
		return
	}

	folder := strings.TrimSpace(c.PostForm("folder"))
	switch folder {
	case "", "posts":
		folder = "posts"
	case "avatars":
	default:
		util.RespondValidationError(c, "folder", "folder must be posts or avatars")
		return
	}

	result, err := h.uploader.UploadImage(c.Request.Context(), data, folder, user.ID, header.Filename)
	if err != nil {
		util.RespondInternalError(c, "upload failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":  result.URL,
		"key":  result.Key,
		"size": result.Size,
	})
}
