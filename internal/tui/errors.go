package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/fbrowse/internal/fetch"
	"github.com/pders01/fbrowse/internal/opener"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// retryable reports whether the user can fix err by reloading.
func retryable(err error) bool {
	var timeout *fetch.TimeoutError
	var query *fetch.StoreQueryError
	return errors.As(err, &timeout) || errors.As(err, &query)
}

// openFailureHint adds a config hint when no program could be started.
func openFailureHint(err error) string {
	if errors.Is(err, opener.ErrNoProgram) {
		return "set opener.default_opener in your config"
	}
	return ""
}
