package channel

import "github.com/go-logr/logr"

type options struct {
	log logr.Logger
}

type Option func(*options)

// WithLogger sets the logger used for lifecycle events: the last sender
// closing (V(1)), senders collected without Close, and poisoning.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}
