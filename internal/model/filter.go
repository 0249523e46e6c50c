package model

// FilterTodos returns the subset of todos visible under f, in list order.
//
// FilterAll returns the input slice itself. The input is never modified.
func FilterTodos(todos []Todo, f Filter) []Todo {
	switch f {
	case FilterActive:
		return selectTodos(todos, func(t Todo) bool { return !t.Completed })
	case FilterCompleted:
		return selectTodos(todos, func(t Todo) bool { return t.Completed })
	default:
		return todos
	}
}

func selectTodos(todos []Todo, keep func(Todo) bool) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func CountActive(todos []Todo) int {
	n := 0
	for _, t := range todos {
		if !t.Completed {
			n++
		}
	}
	return n
}

func HasCompleted(todos []Todo) bool {
	for _, t := range todos {
		if t.Completed {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the todo with id, or -1.
func IndexOf(todos []Todo, id int) int {
	for i, t := range todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
