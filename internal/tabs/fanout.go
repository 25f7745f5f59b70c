package tabs

import (
	"context"
	"errors"
)

// Fanout sends every command to each Commander.
type Fanout []Commander

// Navigate succeeds when at least one commander accepted the command.
func (f Fanout) Navigate(ctx context.Context, id ID, url string) error {
	var errs []error
	for _, c := range f {
		if err := c.Navigate(ctx, id, url); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	if len(errs) == 0 {
		return tabNotFound(id)
	}
	return errors.Join(errs...)
}

// SetBadge updates every commander and reports all failures.
func (f Fanout) SetBadge(ctx context.Context, badge Badge) error {
	var errs []error
	for _, c := range f {
		if err := c.SetBadge(ctx, badge); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
