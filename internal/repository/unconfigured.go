package repository

import "context"

// Unconfigured is the Store used when no database is configured. Every call
// fails with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Insert(context.Context, string, ...Row) ([]Row, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Select(context.Context, string, Query) ([]Row, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Update(context.Context, string, Row, ...Filter) ([]Row, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string, ...Filter) error {
	return ErrNotConfigured
}
