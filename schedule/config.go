// config.go - Shift template configuration.
//
// Templates drive week generation: one template per shift type, loaded
// from a YAML file or falling back to the built-in defaults.
package schedule

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ShiftTemplate describes the default window and capacity for one
// shift type.
type ShiftTemplate struct {
	StartTime string `yaml:"start" validate:"required"`
	EndTime   string `yaml:"end" validate:"required"`
	Capacity  int    `yaml:"capacity" validate:"required,min=1,max=10"`
}

// Templates maps shift type to its template.
type Templates map[ShiftType]ShiftTemplate

// DefaultTemplates returns the built-in shift plan: two overlapping
// short shifts with two slots each and two mutually exclusive long
// shifts with one slot each.
func DefaultTemplates() Templates {
	return Templates{
		ShiftEarly:     {StartTime: "09:00", EndTime: "15:00", Capacity: 2},
		ShiftLate:      {StartTime: "13:00", EndTime: "19:00", Capacity: 2},
		ShiftLongEarly: {StartTime: "09:00", EndTime: "17:30", Capacity: 1},
		ShiftLongLate:  {StartTime: "10:30", EndTime: "19:00", Capacity: 1},
	}
}

// LoadTemplates reads templates from a YAML file. Missing types fall
// back to the defaults; unknown types are rejected.
func LoadTemplates(path string) (Templates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var parsed map[string]ShiftTemplate
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	validate := validator.New()
	out := DefaultTemplates()
	for name, tpl := range parsed {
		typ := ShiftType(name)
		if !typ.Known() || typ == ShiftCustom {
			return nil, fmt.Errorf("unknown shift type %q in %s", name, path)
		}
		if err := validate.Struct(tpl); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		start, err := ParseClock(tpl.StartTime)
		if err != nil {
			return nil, fmt.Errorf("template %s start: %w", name, err)
		}
		end, err := ParseClock(tpl.EndTime)
		if err != nil {
			return nil, fmt.Errorf("template %s end: %w", name, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("template %s: start %s must precede end %s", name, start, end)
		}
		out[typ] = tpl
	}
	return out, nil
}

// Window returns the parsed start/end of a template. Templates are
// validated at load time, so parse errors here are programmer errors.
func (t ShiftTemplate) Window() (ClockTime, ClockTime) {
	return MustClock(t.StartTime), MustClock(t.EndTime)
}
