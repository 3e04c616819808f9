package tutor

import (
	"errors"
	"fmt"

	"tara-tutor-be/pkg/ingest"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/search"
)

var (
	ErrUnsupportedFileType = ingest.ErrUnsupportedFileType
	ErrEmptyDocument       = ingest.ErrEmptyDocument
	ErrRetrieval           = search.ErrRetrieval
	ErrGeneratorCall       = errors.New("generator call failed")
	ErrMissingCredential   = errors.New("missing credential")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrUnknownOption       = errors.New("no such quiz option")
)

// GeneratorError wraps a failed LLM call. errors.Is(err, ErrGeneratorCall) holds for it.
type GeneratorError struct {
	Retryable bool
	Err       error
}

func newGeneratorError(err error) *GeneratorError {
	return &GeneratorError{Retryable: llm.IsRetryable(err), Err: err}
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGeneratorCall, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

func (e *GeneratorError) Is(target error) bool { return target == ErrGeneratorCall }

// MissingCredentialError names the absent setting.
func MissingCredentialError(key, reason string) error {
	return fmt.Errorf("%w: %s (%s)", ErrMissingCredential, key, reason)
}
