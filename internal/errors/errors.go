// Package errors provides centralized error handling with categories and
// component tagging for the soundscape engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategorySampleLoad    ErrorCategory = "sample-load"
	CategoryAudioDevice   ErrorCategory = "audio-device"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryRendering     ErrorCategory = "rendering"
	CategoryState         ErrorCategory = "state"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with category, component and context metadata.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
	component string
	detected  bool
	mu        sync.RWMutex
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches on category when the target is another EnhancedError,
// otherwise defers to the wrapped error chain.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetCategory returns the error category.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetComponent returns the component name, detecting it lazily if needed.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		c := ee.component
		ee.mu.RUnlock()
		return c
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}
	return ee.component
}

// GetContext returns a copy of the context data.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(ee.Context))
	maps.Copy(cp, ee.Context)
	return cp
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new builder wrapping a formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set).
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the EnhancedError.
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  eb.component != "",
	}
	if ee.component == "" {
		ee.component = ComponentUnknown
		ee.detected = true
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// Component registry for package path based component detection
var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent registers a package path pattern with a component name.
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("zones", "zones")
	RegisterComponent("samplebank", "samplebank")
	RegisterComponent("mapper", "mapper")
	RegisterComponent("render", "render")
	RegisterComponent("depth", "depth")
	RegisterComponent("soundscape", "soundscape")
	RegisterComponent("conf", "configuration")
}

// detectComponent walks the call stack for a registered package pattern.
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for {
		frame, more := frames.Next()
		if strings.Contains(frame.Function, "/internal/errors.") {
			if !more {
				break
			}
			continue
		}
		for pattern, component := range componentRegistry {
			if strings.Contains(frame.Function, "/internal/"+pattern+".") {
				return component
			}
		}
		if !more {
			break
		}
	}
	return ""
}

// Standard library passthroughs so callers need only this package.

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join wraps a multi-error into a single error.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// NewStd creates a plain standard library error without enhancement.
func NewStd(text string) error {
	return stderrors.New(text)
}
