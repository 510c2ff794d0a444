package system

import "context"

// Service is a component with a start/stop lifecycle, such as the collection
// audit. Stop receives a context bounding how long shutdown may take.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
