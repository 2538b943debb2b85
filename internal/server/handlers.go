package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"docqa/internal/models"
	"docqa/internal/parser"
)

type questionRequest struct {
	Question string `json:"question"`
}

func (s *Server) createSession(c *gin.Context) {
	sess, err := s.sessions.Create()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newView(sess))
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newView(sess))
}

func (s *Server) endSession(c *gin.Context) {
	if err := s.sessions.End(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadDocument handles onUpload: the multipart field "file" is indexed into
// the session, replacing any previous document.
func (s *Server) uploadDocument(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Request.ContentLength > s.cfg.MaxUploadBytes {
		tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge(c)
			return
		}
		badRequest(c, "Attach the document in the \"file\" form field.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "The upload could not be read.")
		return
	}
	if len(data) == 0 {
		badRequest(c, "The uploaded file is empty.")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mt := parser.NormalizeMIME(mimeType); mt == "" || mt == "application/octet-stream" {
		mimeType = parser.DetectMIME(data)
	}

	res, err := sess.Upload(c.Request.Context(), models.Document{
		Name:     filepath.Base(header.Filename),
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": res, "session": sess.Info()})
}

// askQuestion handles onQuestion.
func (s *Server) askQuestion(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Send the question as JSON: {\"question\": \"...\"}.")
		return
	}
	turn, err := sess.Ask(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turn": newTurnView(turn), "session": sess.Info()})
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
