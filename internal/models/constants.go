package models

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

const (
	ContextHeader    = "Context:"
	ContextSeparator = "\n\n"
	SegmentSeparator = "\n\n"
)
