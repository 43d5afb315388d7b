package world

import (
	"strings"

	"nations.ai/internal/protocol"
)

// Schedule is an ordered list of actions. Extend never aliases the
// receiver's storage, so schedules can be shared between frontier entries.
type Schedule struct {
	actions []Action
}

func NewSchedule(actions ...Action) Schedule {
	return Schedule{actions: append([]Action(nil), actions...)}
}

func (s Schedule) Len() int { return len(s.actions) }

func (s Schedule) Actions() []Action {
	return append([]Action(nil), s.actions...)
}

func (s Schedule) At(i int) Action { return s.actions[i] }

func (s Schedule) Last() (Action, bool) {
	if len(s.actions) == 0 {
		return nil, false
	}
	return s.actions[len(s.actions)-1], true
}

func (s Schedule) Extend(a Action) Schedule {
	out := make([]Action, len(s.actions)+1)
	copy(out, s.actions)
	out[len(s.actions)] = a
	return Schedule{actions: out}
}

// CountriesInvolved returns the sorted set of countries any action touches.
func (s Schedule) CountriesInvolved() []string {
	var names []string
	for _, a := range s.actions {
		names = append(names, a.Countries()...)
	}
	return sortedUnique(names)
}

// Apply runs the schedule on a copy of w and returns the copy. w itself is
// never mutated.
func (s Schedule) Apply(w *World) (*World, error) {
	out := w.Copy()
	for _, a := range s.actions {
		if err := out.ApplyAction(a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s Schedule) Strings() []string {
	out := make([]string, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.String()
	}
	return out
}

func (s Schedule) String() string {
	return strings.Join(s.Strings(), protocol.ActionSep)
}
