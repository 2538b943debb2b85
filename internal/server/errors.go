package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

type errorKind struct {
	err     error
	status  int
	code    string
	message string
}

var errorKinds = []errorKind{
	{models.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "unsupported_format",
		"Unsupported file type. Upload a PDF, DOCX or PPTX document."},
	{models.ErrExtraction, http.StatusUnprocessableEntity, "extraction_failed",
		"The document could not be read. Check that the file is not damaged and contains text."},
	{models.ErrNoIndexAvailable, http.StatusConflict, "no_index",
		"Upload a document before asking questions."},
	{models.ErrEmptyQuestion, http.StatusBadRequest, "empty_question",
		"Type a question first."},
	{models.ErrEmbedding, http.StatusBadGateway, "embedding_failed",
		"The embedding service is unavailable. Please try again."},
	{models.ErrIndexBuild, http.StatusBadGateway, "index_failed",
		"The document could not be indexed. Please try again."},
	{models.ErrGeneration, http.StatusBadGateway, "generation_failed",
		"The language model did not return an answer. Please try again."},
	{models.ErrSessionNotFound, http.StatusNotFound, "session_not_found",
		"This session has ended. Start a new one."},
}

// respondError writes the user-facing message for err's kind.
func respondError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{"error": k.code, "message": k.message, "detail": err.Error()})
			return
		}
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled request error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "Something went wrong."})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": message})
}

func tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too_large", "message": "The file is too large."})
}
