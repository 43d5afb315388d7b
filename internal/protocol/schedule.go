package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ActionTransform = "TRANSFORM"
	ActionTransfer  = "TRANSFER"

	ActionSep = " | "
	EUSep     = ";"
)

// ScheduleHeader is the header row of the output schedules table.
var ScheduleHeader = []string{"Schedule", "Step_EUs"}

// Quantity is one (resource amount) pair of a rendered transfer payload.
type Quantity struct {
	Resource string
	Amount   int
}

// ActionSpec is the rendered, world-independent form of an action:
//
//	(TRANSFORM CountryA Timber x2)
//	(TRANSFER CountryA CountryB (Timber 1))
type ActionSpec struct {
	Kind string

	// TRANSFORM
	Country  string
	Template string
	Scale    int

	// TRANSFER
	Src     string
	Dst     string
	Payload []Quantity
}

func (a ActionSpec) String() string {
	switch a.Kind {
	case ActionTransform:
		return fmt.Sprintf("(%s %s %s x%d)", ActionTransform, a.Country, a.Template, a.Scale)
	case ActionTransfer:
		var b strings.Builder
		fmt.Fprintf(&b, "(%s %s %s", ActionTransfer, a.Src, a.Dst)
		for _, q := range a.Payload {
			fmt.Fprintf(&b, " (%s %d)", q.Resource, q.Amount)
		}
		b.WriteByte(')')
		return b.String()
	default:
		return "(" + a.Kind + ")"
	}
}

// ParseAction parses the rendering produced by ActionSpec.String.
func ParseAction(s string) (ActionSpec, error) {
	var spec ActionSpec
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "(") || !strings.HasSuffix(t, ")") {
		return spec, fmt.Errorf("%w: action %q is not parenthesized", ErrInvalidArgument, s)
	}
	fields := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(t))
	if len(fields) == 0 {
		return spec, fmt.Errorf("%w: empty action", ErrInvalidArgument)
	}
	spec.Kind = strings.ToUpper(fields[0])
	switch spec.Kind {
	case ActionTransform:
		if len(fields) != 4 || !strings.HasPrefix(fields[3], "x") {
			return spec, fmt.Errorf("%w: bad transform %q", ErrInvalidArgument, s)
		}
		n, err := strconv.Atoi(fields[3][1:])
		if err != nil || n < 0 {
			return spec, fmt.Errorf("%w: bad transform scale in %q", ErrInvalidArgument, s)
		}
		spec.Country, spec.Template, spec.Scale = fields[1], fields[2], n
	case ActionTransfer:
		if len(fields) < 5 || (len(fields)-3)%2 != 0 {
			return spec, fmt.Errorf("%w: bad transfer %q", ErrInvalidArgument, s)
		}
		spec.Src, spec.Dst = fields[1], fields[2]
		for i := 3; i < len(fields); i += 2 {
			n, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return spec, fmt.Errorf("%w: bad transfer amount in %q", ErrInvalidArgument, s)
			}
			spec.Payload = append(spec.Payload, Quantity{Resource: fields[i], Amount: n})
		}
	default:
		return spec, fmt.Errorf("%w: unknown action kind %q", ErrInvalidArgument, fields[0])
	}
	return spec, nil
}

// ScheduleRow is one completed schedule in the output table.
type ScheduleRow struct {
	Actions []string
	StepEUs []float64
}

// Record renders the row as the two table cells.
func (r ScheduleRow) Record() []string {
	eus := make([]string, len(r.StepEUs))
	for i, u := range r.StepEUs {
		eus[i] = strconv.FormatFloat(u, 'f', 4, 64)
	}
	return []string{strings.Join(r.Actions, ActionSep), strings.Join(eus, EUSep)}
}

// ParseScheduleRecord is the inverse of Record.
func ParseScheduleRecord(rec []string) (ScheduleRow, error) {
	var row ScheduleRow
	if len(rec) != len(ScheduleHeader) {
		return row, fmt.Errorf("%w: schedule record has %d fields", ErrInvalidNumericField, len(rec))
	}
	if s := strings.TrimSpace(rec[0]); s != "" {
		for _, a := range strings.Split(s, ActionSep) {
			row.Actions = append(row.Actions, strings.TrimSpace(a))
		}
	}
	if s := strings.TrimSpace(rec[1]); s != "" {
		for _, part := range strings.Split(s, EUSep) {
			u, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return row, fmt.Errorf("%w: step EU %q", ErrInvalidNumericField, part)
			}
			row.StepEUs = append(row.StepEUs, u)
		}
	}
	return row, nil
}
