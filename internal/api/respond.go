package api

import (
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/service"
)

// maxPayloadBytes bounds request bodies read by bindPayload.
const maxPayloadBytes = 1 << 20

const errorFragment = `<p class="rounded-lg border border-red-200 bg-red-50 p-3 text-sm text-red-700 dark:border-orange/40 dark:bg-orange/10 dark:text-orange">%s</p>`

func isHX(c *gin.Context) bool {
	return c.GetHeader(HeaderHXRequest) != ""
}

// respondError aborts with an HTML fragment for htmx requests and
// {"error": message} otherwise.
func respondError(c *gin.Context, code int, message string) {
	if isHX(c) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(code, errorFragment, html.EscapeString(message))
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// handleServiceError maps a service error to a status code and message.
// Messages of store errors are already safe to show; driver detail is only logged.
func handleServiceError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		permissionErr *service.PermissionDeniedError
		schemaErr     *service.SchemaMismatchError
		storeErr      *service.StoreError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		respondError(c, http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrStoreNotConfigured), errors.Is(err, service.ErrStorageNotConfigured):
		respondError(c, http.StatusNotImplemented, err.Error())
	case errors.As(err, &permissionErr):
		log.WithError(permissionErr.Err).WithField("request_id", c.GetString(ContextRequestIDKey)).Warn("write blocked by row-level security")
		respondError(c, http.StatusForbidden, permissionErr.Message)
	case errors.As(err, &schemaErr):
		log.WithError(schemaErr.Err).WithField("request_id", c.GetString(ContextRequestIDKey)).Error("schema mismatch")
		respondError(c, http.StatusInternalServerError, schemaErr.Message)
	case errors.As(err, &storeErr):
		log.WithError(storeErr.Err).WithField("request_id", c.GetString(ContextRequestIDKey)).Error(storeErr.Message)
		respondError(c, http.StatusInternalServerError, storeErr.Message)
	default:
		log.WithError(err).WithField("request_id", c.GetString(ContextRequestIDKey)).Error("unexpected service error")
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bindPayload reads a JSON body or a url-encoded/multipart form.
func bindPayload(c *gin.Context) (normalize.Payload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)

	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		return normalize.FromJSON(body)
	}

	if err := c.Request.ParseMultipartForm(maxPayloadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, errors.Wrap(err, "parsing form")
	}
	return normalize.FromForm(c.Request.PostForm), nil
}

// payloadOrAbort binds the request payload, answering 400 when it is malformed.
func payloadOrAbort(c *gin.Context) (normalize.Payload, bool) {
	payload, err := bindPayload(c)
	if err != nil {
		log.WithError(err).WithField("request_id", c.GetString(ContextRequestIDKey)).Debug("malformed request body")
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return payload, true
}

// respondDeleted answers an empty 200 to htmx, so the swapped element is
// removed, and 204 to everyone else.
func respondDeleted(c *gin.Context) {
	if isHX(c) {
		c.String(http.StatusOK, "")
		return
	}
	c.Status(http.StatusNoContent)
}
