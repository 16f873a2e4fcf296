package validate

import (
	"context"
	"sync"

	"mp3-to-mp4/internal/domain"
	"mp3-to-mp4/internal/errs"
)

// Callbacks receive per-file validation outcomes. Fired from validation
// goroutines; receivers must not block.
type Callbacks struct {
	OnStart   func(path string)
	OnSuccess func(path string, audio domain.AudioFile)
	OnError   func(path string, message string)
}

// Controller dispatches deep validation concurrently, one goroutine per
// file, with no concurrency cap. Unlike the conversion scheduler there is
// no queue and no cancellation: validation is short-lived.
type Controller struct {
	validator *Validator
	callbacks Callbacks
	wg        sync.WaitGroup
}

// NewController builds a controller over a validator.
func NewController(validator *Validator, callbacks Callbacks) *Controller {
	return &Controller{
		validator: validator,
		callbacks: callbacks,
	}
}

// ValidateAll validates every path asynchronously and reports each outcome
// through the callbacks. Returns immediately.
func (c *Controller) ValidateAll(ctx context.Context, paths []string) {
	for _, path := range paths {
		c.wg.Add(1)
		go func(path string) {
			defer c.wg.Done()
			c.validateOne(ctx, path)
		}(path)
	}
}

// Wait blocks until all in-flight validations finish.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// validateOne runs one validation and maps the outcome to callbacks.
func (c *Controller) validateOne(ctx context.Context, path string) {
	if c.callbacks.OnStart != nil {
		c.callbacks.OnStart(path)
	}

	audio, err := c.validator.Validate(ctx, path)
	if err != nil {
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(path, errs.UserMessage(err))
		}
		return
	}

	if c.callbacks.OnSuccess != nil {
		c.callbacks.OnSuccess(path, audio)
	}
}

// QuickFilter exposes the validator's synchronous pre-check.
func (c *Controller) QuickFilter(paths []string) ([]string, []PathError) {
	return c.validator.QuickFilter(paths)
}
