package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/service"
)

// ContextManager reads the authenticated user from request contexts.
type ContextManager interface {
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
}

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

// message is the generic acknowledgement body.
type message struct {
	Msg string `json:"msg"`
}

// result is the acknowledgement body of endpoints that report success.
type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierrors.NewErrBadRequest("invalid request body")
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return parseID(chi.URLParam(r, name))
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierrors.NewErrBadRequest("invalid id format")
	}
	return id, nil
}

func currentUser(cm ContextManager, r *http.Request) (uuid.UUID, error) {
	userID, ok := cm.GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, apierrors.NewErrInvalidAuthorizationToken()
	}
	return userID, nil
}

// readUpload parses a multipart body limited to maxBytes of file content and
// returns the file under uploadField. The caller must close the returned file.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (service.Upload, io.Closer, error) {
	if maxBytes > 0 {
		// Leaves room for the multipart envelope around the file.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return service.Upload{}, nil, apierrors.NewErrFileTooLarge()
		}
		return service.Upload{}, nil, apierrors.NewErrBadRequest("invalid multipart form")
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return service.Upload{}, nil, apierrors.NewErrBadRequest("no file uploaded")
		}
		return service.Upload{}, nil, fmt.Errorf("failed to read form file: %w", err)
	}

	return uploadFromHeader(file, header), file, nil
}

func uploadFromHeader(file multipart.File, header *multipart.FileHeader) service.Upload {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return service.Upload{
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Reader:      file,
	}
}

// fail logs the error at a level matching its status and writes it.
func fail(l *logger.Logger, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "error", err.Error())
	if apiErr, ok := apierrors.As(err); ok && apiErr.Status < http.StatusInternalServerError {
		l.Debug(msg, args...)
	} else {
		l.Error(msg, args...)
	}
	response.Error(w, err)
}
