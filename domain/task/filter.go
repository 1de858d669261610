package task

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/example/task-manager/domain/validation"
)

// Query parameters understood by ParseFilter.
const (
	ParamStatus   = "status"
	ParamExecutor = "executor"
	ParamLabel    = "label"
	ParamOwnTask  = "own_task"
)

const invalidFilterChoice = "Select a valid choice. That choice is not one of the available choices."

// ParseFilter builds a Filter from list query parameters. Empty and zero
// values add no constraint; own_task restricts the list to actorID's tasks.
// A value that is not a number yields validation.Errors keyed by parameter.
func ParseFilter(q url.Values, actorID uint) (Filter, error) {
	var f Filter
	fe := validation.Errors{}

	parseOne := func(param string) uint {
		raw := strings.TrimSpace(q.Get(param))
		if raw == "" {
			return 0
		}
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			fe.Add(param, invalidFilterChoice)
			return 0
		}
		return uint(id)
	}

	f.StatusID = parseOne(ParamStatus)
	f.ExecutorID = parseOne(ParamExecutor)

	for _, raw := range q[ParamLabel] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			fe.Add(ParamLabel, invalidFilterChoice)
			continue
		}
		if id != 0 {
			f.LabelIDs = append(f.LabelIDs, uint(id))
		}
	}

	if truthy(q.Get(ParamOwnTask)) && actorID != 0 {
		f.AuthorID = actorID
	}

	if err := fe.OrNil(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1":
		return true
	}
	return false
}
