package scheduler

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// Task is one execution of a recurring job.
type Task func() error

// SafeRecurring wraps task so that an error or panic in one execution is
// logged and swallowed. A recurring schedule built on the result keeps running
// no matter what a single execution does.
func SafeRecurring(name string, task Task) func() {
	return func() {
		if err := runGuarded(task); err != nil {
			log.Error().Err(err).Str("task", name).Msg("recurring task execution failed")
		}
	}
}

func runGuarded(task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = xerrors.Errorf("recurring task panicked: %v", p)
		}
	}()
	return task()
}
