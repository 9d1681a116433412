package queue

import "context"

// Job handles every message of one Type. A non-nil error schedules a retry.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}
