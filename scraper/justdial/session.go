// Package justdial implements the incremental collection and resolution
// engine for Justdial listing pages.
package justdial

import (
	"context"
	"errors"
)

var (
	// ErrSessionLost means the browser session is gone; the run cannot continue.
	ErrSessionLost = errors.New("browser session lost")
	// ErrLoginRequired means the page is behind a login barrier.
	ErrLoginRequired = errors.New("login required")
	// ErrElementNotFound means a DOM lookup found no matching node.
	ErrElementNotFound = errors.New("element not found")
)

// Session is the narrow browser capability the engine drives. All calls
// are blocking and made from a single goroutine.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Cookies(ctx context.Context) (map[string]string, error)
	Evaluate(ctx context.Context, expression string, res any) error
	// ElementHTML returns the outer HTML of the element with the given id,
	// or ErrElementNotFound.
	ElementHTML(ctx context.Context, id string) (string, error)
	ScrollBy(ctx context.Context, pixels int) error
}
