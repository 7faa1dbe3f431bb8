package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/service"
)

// FileService stores transient shared files.
type FileService interface {
	Upload(ctx context.Context, ownerID uuid.UUID, upload service.Upload) (model.SharedFile, error)
}

type uploadResponse struct {
	Message string `json:"message"`
	FileURL string `json:"file_url"`
}

// File handles shared file uploads.
type File struct {
	fileService    FileService
	contextManager ContextManager
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewFile creates a new File handler.
func NewFile(fileService FileService, contextManager ContextManager, maxUploadBytes int64, logger *logger.Logger) *File {
	return &File{
		fileService:    fileService,
		contextManager: contextManager,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *File) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(h.contextManager, r)
	if err != nil {
		fail(h.logger, w, "File handler: unauthenticated request", err)
		return
	}

	upload, file, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		fail(h.logger, w, "File handler: invalid upload", err,
			"user_id", userID)
		return
	}
	defer file.Close()

	h.logger.Debug("File handler: processing upload",
		"user_id", userID,
		"file_name", upload.FileName,
		"content_type", upload.ContentType,
		"size", upload.Size)

	shared, err := h.fileService.Upload(r.Context(), userID, upload)
	if err != nil {
		fail(h.logger, w, "File handler: upload failed", err,
			"user_id", userID)
		return
	}

	response.JSON(w, http.StatusOK, uploadResponse{Message: "File uploaded successfully", FileURL: shared.URL})
}
