package config

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-rnaseq/pkg/executor"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

//go:embed tools.yaml
var defaultTools []byte

// Tools holds the command template of each external tool.
type Tools struct {
	QC    executor.Template `yaml:"qc"`
	Trim  executor.Template `yaml:"trim"`
	Align executor.Template `yaml:"align"`
	Count executor.Template `yaml:"count"`
	Stats executor.Template `yaml:"stats"`
}

// LoadTools returns the built-in templates overridden by the entries of path. An empty
// path keeps the built-in templates. Keys given in the file replace the built-in value as a
// whole, a stage entry that only sets tool keeps its default args and outputs.
func LoadTools(path string) (*Tools, error) {
	tools := &Tools{}

	err := yaml.Unmarshal(defaultTools, tools)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse built-in tool templates")
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(model.ErrEnvironment, "unable to read tool templates %s: %v", path, err)
		}

		err = yaml.Unmarshal(content, tools)
		if err != nil {
			return nil, errors.Wrapf(model.ErrFormat, "tool templates %s: %v", path, err)
		}
	}

	err = tools.Validate()
	if err != nil {
		return nil, err
	}

	return tools, nil
}

func (t *Tools) byStage() map[string]executor.Template {
	return map[string]executor.Template{
		"qc":    t.QC,
		"trim":  t.Trim,
		"align": t.Align,
		"count": t.Count,
		"stats": t.Stats,
	}
}

// Validate checks every template.
func (t *Tools) Validate() error {
	for name, tpl := range t.byStage() {
		err := tpl.Validate()
		if err != nil {
			return errors.Wrapf(err, "%s tool template", name)
		}
	}

	return nil
}

// Executables returns the tool of every template.
func (t *Tools) Executables() []string {
	return []string{t.QC.Tool, t.Trim.Tool, t.Align.Tool, t.Count.Tool, t.Stats.Tool}
}
