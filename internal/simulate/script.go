// Package simulate drives a binding coordinator through scripted or random
// lifecycle sequences.
package simulate

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/svcbind/internal/errors"
)

// Action is one kind of script step.
type Action string

const (
	ActionStart    Action = "start"
	ActionExit     Action = "exit"
	ActionRetry    Action = "retry"
	ActionBind     Action = "bind"
	ActionUnbind   Action = "unbind"
	ActionHostDown Action = "host_down"
	ActionHostUp   Action = "host_up"
	ActionContext  Action = "context"
)

// arity is the accepted argument counts per action: min, max.
var arity = map[Action][2]int{
	ActionStart:    {0, 0},
	ActionExit:     {0, 0},
	ActionRetry:    {0, 0},
	ActionBind:     {1, 1},
	ActionUnbind:   {0, 1},
	ActionHostDown: {0, 0},
	ActionHostUp:   {0, 0},
	ActionContext:  {2, 2},
}

// Expect is an optional check applied after a step.
type Expect struct {
	State      string `yaml:"state"`
	Published  string `yaml:"published"` // "none" for an empty slot
	Repository string `yaml:"repository"`
	Error      *bool  `yaml:"error"`
}

func (e Expect) empty() bool {
	return e.State == "" && e.Published == "" && e.Repository == "" && e.Error == nil
}

// Step is one script line, e.g. "bind orders". In YAML a step is either a
// plain string or a mapping with "do" and "expect".
type Step struct {
	Action Action
	Args   []string
	Expect *Expect
}

// String renders the step the way it is written in a script.
func (s Step) String() string {
	if len(s.Args) == 0 {
		return string(s.Action)
	}
	return string(s.Action) + " " + strings.Join(s.Args, " ")
}

// Arg returns the i-th argument or "".
func (s Step) Arg(i int) string {
	if i < len(s.Args) {
		return s.Args[i]
	}
	return ""
}

// ParseStep parses a step line.
func ParseStep(line string) (Step, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Step{}, errors.NewValidationError("empty step")
	}

	s := Step{Action: Action(strings.ToLower(fields[0])), Args: fields[1:]}
	bounds, ok := arity[s.Action]
	if !ok {
		return Step{}, errors.NewValidationError("unknown action").WithField("action").WithValue(fields[0])
	}
	if n := len(s.Args); n < bounds[0] || n > bounds[1] {
		return Step{}, errors.NewValidationError(
			fmt.Sprintf("%s takes %s", s.Action, describeArity(bounds))).
			WithField("args").WithValue(strings.Join(s.Args, " "))
	}
	if len(s.Args) == 0 {
		s.Args = nil
	}
	return s, nil
}

func describeArity(b [2]int) string {
	switch {
	case b[0] == b[1] && b[0] == 0:
		return "no arguments"
	case b[0] == b[1]:
		return fmt.Sprintf("%d argument(s)", b[0])
	default:
		return fmt.Sprintf("%d to %d arguments", b[0], b[1])
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		step, err := ParseStep(node.Value)
		if err != nil {
			return lineError(node, err)
		}
		*s = step
		return nil

	case yaml.MappingNode:
		var raw struct {
			Do     string `yaml:"do"`
			Expect Expect `yaml:"expect"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		step, err := ParseStep(raw.Do)
		if err != nil {
			return lineError(node, err)
		}
		if !raw.Expect.empty() {
			exp := raw.Expect
			step.Expect = &exp
		}
		*s = step
		return nil
	}
	return lineError(node, errors.NewValidationError("step must be a string or a mapping"))
}

func lineError(node *yaml.Node, err error) error {
	return fmt.Errorf("line %d: %w", node.Line, err)
}

// HostSpec is the simulated host's initial context.
type HostSpec struct {
	Repository string `yaml:"repository"`
	MetaStore  string `yaml:"metastore"`
}

// Script is a named sequence of steps.
type Script struct {
	Name  string   `yaml:"name"`
	Host  HostSpec `yaml:"host"`
	Steps []Step   `yaml:"steps"`
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.NewValidationError("invalid script").WithCause(err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.NewValidationError("script has no steps").WithField("steps")
	}
	if s.Host.Repository == "" {
		s.Host.Repository = "default"
	}
	if s.Host.MetaStore == "" {
		s.Host.MetaStore = "local"
	}
	return &s, nil
}

// LoadScript reads and parses a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load script %s", path)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
