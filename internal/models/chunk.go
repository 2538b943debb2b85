package models

import "time"

// Document is an uploaded file as received from the user.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Segment is one ordered text record produced by an extractor.
type Segment struct {
	Text string
	Page int // 1-based page or slide number
}

// Chunk represents a window of document text with metadata
type Chunk struct {
	ID           string
	DocumentName string
	Ordinal      int
	Page         int
	Text         string
}

type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// RetrievedChunk is a chunk returned by a similarity query.
type RetrievedChunk struct {
	Chunk
	Similarity float32
}

// Turn is one answered question.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}
