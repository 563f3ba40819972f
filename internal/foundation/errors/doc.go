// Package errors provides the classified error primitives used across contented.
//
// Every failure the pipeline engine reports falls into one of a small set of
// categories so callers can decide scope without string matching:
//
//   - CategoryConfig: malformed pipeline declaration, fatal at load
//   - CategoryProcessor: unknown processor identifier or failed processor init,
//     fatal for the owning pipeline only
//   - CategoryValidation: a field value missing or of the wrong type, scoped to one file
//   - CategoryFileSystem: stat/read failure on a source file, scoped to one file
//   - CategoryCollision: two records share a canonical path within a pipeline
//   - CategoryPersist: writing the content index failed
//
// Example usage:
//
//	err := errors.FieldValidationError("title", "guide/intro.md").Build()
//	if errors.HasCategory(err, errors.CategoryValidation) { ... }
package errors
