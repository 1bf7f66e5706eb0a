// Package extractor transforms fetched page markup into a structured
// model.PageContent. Extraction is a deterministic pure function: the same
// HTML and base URL always yield a field-for-field identical result, with
// sequences in document order. Malformed markup degrades to partial
// results recorded as parse notes; extraction never fails.
package extractor
