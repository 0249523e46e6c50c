package model

import (
	"fmt"
	"strings"
)

// Todo is a single task owned by one user.
//
// ID is assigned by the server. A Todo with ID 0 has never been saved; the UI
// uses it as the placeholder while a create request is in flight.
type Todo struct {
	ID        int    `json:"id"`
	OwnerID   int    `json:"ownerId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// NewTodo is the payload sent when creating a task (no id yet).
type NewTodo struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	OwnerID   int    `json:"ownerId"`
}

func (t Todo) IsPlaceholder() bool { return t.ID == 0 }

func (t Todo) String() string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %d %s", mark, t.ID, t.Title)
}

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists the filter modes in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter: %q (want all|active|completed)", s)
	}
}

func (f Filter) Label() string {
	switch f {
	case FilterActive:
		return "Active"
	case FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	for i, x := range Filters {
		if x == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// ErrorMessage is the user-facing text of the error banner. ErrorNone means
// no banner is shown.
type ErrorMessage string

const (
	ErrorNone   ErrorMessage = ""
	ErrorGet    ErrorMessage = "Unable to load todos"
	ErrorAdd    ErrorMessage = "Unable to add a todo"
	ErrorUpdate ErrorMessage = "Unable to update a todo"
	ErrorDelete ErrorMessage = "Unable to delete a todo"
	ErrorTitle  ErrorMessage = "Title should not be empty"
)

func (e ErrorMessage) IsEmpty() bool { return e == ErrorNone }
