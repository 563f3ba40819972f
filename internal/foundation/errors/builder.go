package errors

import "fmt"

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithCause sets the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithContextMap adds multiple context values.
func (b *ErrorBuilder) WithContextMap(ctx ErrorContext) *ErrorBuilder {
	b.context = b.context.Merge(ctx)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the pipeline error taxonomy

// ConfigError creates a configuration error (malformed pipeline declaration).
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ProcessorResolutionError reports an unknown processor identifier or a
// processor that failed to construct or initialize.
func ProcessorResolutionError(pipeline, processor string) *ErrorBuilder {
	return NewError(CategoryProcessor, fmt.Sprintf("cannot resolve processor %q", processor)).
		Fatal().
		WithContext("pipeline", pipeline).
		WithContext("processor", processor)
}

// FieldValidationError reports a field that is missing or invalid after resolution.
func FieldValidationError(field, file string) *ErrorBuilder {
	return NewError(CategoryValidation, fmt.Sprintf("required field %q is missing", field)).
		WithContext("field", field).
		WithContext("file", file)
}

// FieldTypeError reports a field whose value cannot be coerced to its declared type.
func FieldTypeError(field, file, typeTag string) *ErrorBuilder {
	return NewError(CategoryValidation, fmt.Sprintf("field %q is not a valid %s", field, typeTag)).
		WithContext("field", field).
		WithContext("file", file).
		WithContext("type", typeTag)
}

// IOError reports a stat or read failure on a source file.
func IOError(file string) *ErrorBuilder {
	return NewError(CategoryFileSystem, "source file unreadable").
		WithContext("file", file)
}

// PathCollisionError reports two records mapping to the same canonical path.
func PathCollisionError(path, kept, dropped string) *ErrorBuilder {
	return NewError(CategoryCollision, fmt.Sprintf("canonical path %q already taken", path)).
		WithContext("path", path).
		WithContext("file", dropped).
		WithContext("kept", kept)
}

// TransformError reports a transform hook failure for one record.
func TransformError(file string) *ErrorBuilder {
	return NewError(CategoryTransform, "transform hook failed").
		WithContext("file", file)
}

// PersistError reports a failed content index write.
func PersistError(message string) *ErrorBuilder {
	return NewError(CategoryPersist, message)
}

// NotFoundError reports a missing resource.
func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message)
}

// JournalError creates a build journal error.
func JournalError(message string) *ErrorBuilder {
	return NewError(CategoryJournal, message)
}

// NotifyError creates a change notification error.
func NotifyError(message string) *ErrorBuilder {
	return NewError(CategoryNotify, message).Warning()
}

// RuntimeError creates a runtime error.
func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
