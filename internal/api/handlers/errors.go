package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ayewealth/harbourhub/internal/apperr"
)

// respondError translates a service error into an HTTP response. Core error
// kinds map to client statuses; anything unclassified is a 500 with a generic
// message so internal details never leak to callers.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindPermission:
			status = http.StatusForbidden
		case apperr.KindState, apperr.KindCycle:
			status = http.StatusConflict
		case apperr.KindNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": appErr.Error(), "kind": appErr.Kind.String()})
		return
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
