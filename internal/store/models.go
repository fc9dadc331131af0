package store

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Issue is a row of the issues table.
type Issue struct {
	ID        string
	Repo      string
	Number    int
	Title     string
	Body      string
	URL       string
	State     string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
