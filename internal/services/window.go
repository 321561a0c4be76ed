package services

import (
	"strings"

	"fintrack/internal/core"
)

// ParseWindow builds an inclusive window from optional from/to query values.
// Both empty means no window; a single bound leaves the other side open.
func ParseWindow(from, to string) (*core.Window, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}

	start, end := core.FirstDate, core.LastDate
	if from != "" {
		d, err := core.ParseDate(from)
		if err != nil {
			return nil, core.NewValidationError("from", core.ErrInvalidDate)
		}
		start = d
	}
	if to != "" {
		d, err := core.ParseDate(to)
		if err != nil {
			return nil, core.NewValidationError("to", core.ErrInvalidDate)
		}
		end = d
	}

	w, err := core.NewWindow(start, end)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func windowKey(w *core.Window) string {
	if w == nil {
		return "all"
	}
	return w.Start.String() + ":" + w.End.String()
}
