package predgt

import (
	"errors"
	"os"

	"github.com/hupe1980/predgt/config"
	"github.com/hupe1980/predgt/search"
	"github.com/hupe1980/predgt/synth"
)

var (
	// ErrConfiguration matches every error caused by unusable parameters,
	// options or output paths. Such errors are returned before any output is
	// written.
	ErrConfiguration = errors.New("predgt: configuration error")

	// ErrInvalidParams is returned when n, p or x is not positive.
	ErrInvalidParams = synth.ErrInvalidParams

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = search.ErrInvalidK

	// ErrUnsupportedMetric is returned for a metric without a scorer.
	ErrUnsupportedMetric = search.ErrUnsupportedMetric

	// ErrUnsupportedCompression is returned for an unknown block codec.
	ErrUnsupportedCompression = errors.New("unsupported compression")
)

// ConfigurationError wraps the cause of a configuration failure.
//
// errors.Is reports true for both ErrConfiguration and the wrapped cause.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func isConfigurationCause(err error) bool {
	var pe *synth.PredicateError
	var pathErr *os.PathError
	return errors.Is(err, synth.ErrInvalidParams) ||
		errors.As(err, &pe) ||
		errors.Is(err, search.ErrInvalidK) ||
		errors.Is(err, search.ErrUnsupportedMetric) ||
		errors.Is(err, search.ErrEmptyCorpus) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, ErrUnsupportedCompression) ||
		errors.As(err, &pathErr)
}

// translateError marks configuration causes so callers can test for
// ErrConfiguration.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfiguration) {
		return err
	}
	if isConfigurationCause(err) {
		return &ConfigurationError{Op: op, Err: err}
	}
	return err
}
