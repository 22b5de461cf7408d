package pending

import (
	"context"

	"paybridge/internal/domain/flow"
)

// Store is the durable home of the single resume record. It must survive
// process restart: the external hand-off can return long after the process
// that wrote the record is gone.
type Store interface {
	// Write persists the record, replacing any previous one.
	Write(ctx context.Context, rec flow.ResumeRecord) error

	// ReadAndClear atomically removes and returns the record. It returns
	// (nil, nil) when no record exists; a concurrent second caller must
	// observe none. A non-nil error with the record already removed means
	// the stored bytes could not be parsed back.
	ReadAndClear(ctx context.Context) (*flow.ResumeRecord, error)

	// Clear removes the record without reading it.
	Clear(ctx context.Context) error
}
