package models

import "errors"

// Error kinds surfaced to the user-facing layer. Match them with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrIndexBuild        = errors.New("index build failed")
	ErrNoIndexAvailable  = errors.New("no document has been indexed yet")
	ErrGeneration        = errors.New("answer generation failed")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrSessionNotFound   = errors.New("session not found")
)
