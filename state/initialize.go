package state

import (
	"time"

	"github.com/google/uuid"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	id, err := uuid.NewV7()
	if err != nil {
		// time based v7 could only fail when random source does
		id = uuid.New()
	}
	return &LocalEnv{
		start: time.Now(),
		RunID: id,
	}
}
