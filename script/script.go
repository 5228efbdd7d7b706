// Package script runs YAML files of by-name invocations against a
// dispatcher, checking each step's outcome against an expectation.
//
//	steps:
//	  - op: writeFile
//	    args: {path: /tmp/x.txt, data: hello}
//	  - op: readFile
//	    mode: callback
//	    args: {path: /tmp/x.txt}
//	    expect: {result: hello}
package script

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/fserr"
)

// Script is an ordered list of steps
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one invocation. Mode is "blocking" (the default) or "callback".
type Step struct {
	Op     string         `yaml:"op"`
	Mode   string         `yaml:"mode,omitempty"`
	Args   map[string]any `yaml:"args"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect describes the outcome a step must produce. Error names an error
// kind ("NoEntry", "IOError", ...); Result is compared with the result
// rendered as text. A step without Expect must succeed.
type Expect struct {
	Error  string  `yaml:"error,omitempty"`
	Result *string `yaml:"result,omitempty"`
}

// Load reads and validates the script at path
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("script is empty")
		}
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks operation names, modes and expectations. Argument values
// are checked when a step runs.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	for i, step := range s.Steps {
		if _, ok := backends.Lookup(step.Op); !ok {
			return fmt.Errorf("step %d: unknown operation %q", i+1, step.Op)
		}
		if _, err := step.mode(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Expect == nil {
			continue
		}
		if step.Expect.Error != "" {
			if _, ok := fserr.ParseKind(step.Expect.Error); !ok {
				return fmt.Errorf("step %d: unknown error kind %q", i+1, step.Expect.Error)
			}
			if step.Expect.Result != nil {
				return fmt.Errorf("step %d: expect has both error and result", i+1)
			}
		}
	}
	return nil
}

func (s Step) mode() (backends.Mode, error) {
	switch s.Mode {
	case "", "blocking":
		return backends.ModeBlocking, nil
	case "callback":
		return backends.ModeCallback, nil
	default:
		return backends.ModeBlocking, fmt.Errorf("unknown mode %q", s.Mode)
	}
}
