// Package episode keeps a history of generated episodes.
//
// Every completed generation run is recorded with its script, output file
// and segment counts. [PostgresStore] persists the history in PostgreSQL;
// [MemoryStore] keeps it for the lifetime of the process and is used when no
// database is configured.
package episode

import (
	"context"
	"errors"
	"time"
)

// Episode describes one completed generation run.
type Episode struct {
	// ID is assigned by the store on [Store.Record].
	ID int64

	// RunID is the trace ID of the run, empty when tracing is off.
	RunID string

	// Project is the project name, empty for runs outside a project.
	Project string

	// Script is the path of the source script.
	Script string

	// Output is the path of the final audio file.
	Output string

	// Preset is the mastering preset, empty when the episode was not mastered.
	Preset string

	// Planned is the number of segments planned from the script.
	Planned int

	// Synthesized is the number of segments that produced audio.
	Synthesized int

	// Pauses is the number of pause markers honoured.
	Pauses int

	// Warnings holds the recoverable problems reported during planning.
	Warnings []string

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration

	// CreatedAt is set by the store.
	CreatedAt time.Time
}

// Failed returns the number of planned segments that produced no audio.
func (e Episode) Failed() int {
	return e.Planned - e.Synthesized
}

// Validate checks that e can be recorded.
func (e *Episode) Validate() error {
	var errs []error
	if e.Script == "" {
		errs = append(errs, errors.New("episode: script must not be empty"))
	}
	if e.Output == "" {
		errs = append(errs, errors.New("episode: output must not be empty"))
	}
	if e.Synthesized < 0 || e.Synthesized > e.Planned {
		errs = append(errs, errors.New("episode: synthesized must be in [0, planned]"))
	}
	return errors.Join(errs...)
}

// Store records and lists episodes. Implementations must be safe for
// concurrent use.
type Store interface {
	// Record validates and stores ep, filling in ID and CreatedAt.
	Record(ctx context.Context, ep *Episode) error

	// List returns the most recent episodes first. An empty project returns
	// episodes of all projects. limit <= 0 returns all of them.
	List(ctx context.Context, project string, limit int) ([]Episode, error)
}
