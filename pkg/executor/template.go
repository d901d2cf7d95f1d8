package executor

import (
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// InputsPlaceholder is the argument that expands into one argv entry per input file.
const InputsPlaceholder = "{{.Inputs}}"

var ErrToolMustBeSet = errors.New("tool must be set")

// Template describes how a stage invokes its tool.
type Template struct {
	Tool string   `yaml:"tool"`
	Args []string `yaml:"args"`
	// Outputs lists the files the tool is expected to write, relative to the output directory.
	Outputs []string `yaml:"outputs"`
}

// Vars holds the values substituted into a Template.
type Vars struct {
	Sample      string
	Input       string
	Inputs      []string
	Output      string
	OutputDir   string
	GenomeIndex string
	Annotation  string
	Conditions  string
	Script      string
}

// Command is a rendered tool invocation.
type Command struct {
	Tool string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Tool}, c.Args...), " ")
}

// Validate checks that the tool is set and that every argument and output parses.
func (t Template) Validate() error {
	if t.Tool == "" {
		return ErrToolMustBeSet
	}

	for _, arg := range append(append([]string{}, t.Args...), t.Outputs...) {
		_, err := parse(arg)
		if err != nil {
			return err
		}
	}

	return nil
}

// Command renders the argument list for vars.
func (t Template) Command(vars Vars) (Command, error) {
	if t.Tool == "" {
		return Command{}, ErrToolMustBeSet
	}

	tool, err := render(t.Tool, vars)
	if err != nil {
		return Command{}, errors.Wrap(err, "unable to render tool")
	}

	args := make([]string, 0, len(t.Args))

	for _, arg := range t.Args {
		if strings.TrimSpace(arg) == InputsPlaceholder {
			args = append(args, vars.Inputs...)

			continue
		}

		rendered, err := render(arg, vars)
		if err != nil {
			return Command{}, errors.Wrapf(err, "unable to render argument %q", arg)
		}

		args = append(args, rendered)
	}

	return Command{Tool: tool, Args: args}, nil
}

// ExpectedOutputs renders the declared outputs, relative names are joined to vars.OutputDir.
func (t Template) ExpectedOutputs(vars Vars) ([]string, error) {
	outputs := make([]string, 0, len(t.Outputs))

	for _, out := range t.Outputs {
		rendered, err := render(out, vars)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to render output %q", out)
		}

		if rendered == "" {
			continue
		}

		if !filepath.IsAbs(rendered) {
			rendered = filepath.Join(vars.OutputDir, rendered)
		}

		outputs = append(outputs, rendered)
	}

	return outputs, nil
}

func parse(text string) (*template.Template, error) {
	tpl, err := template.New("arg").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrapf(model.ErrFormat, "invalid template %q: %v", text, err)
	}

	return tpl, nil
}

func render(text string, vars Vars) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tpl, err := parse(text)
	if err != nil {
		return "", err
	}

	var out strings.Builder

	err = tpl.Execute(&out, vars)
	if err != nil {
		return "", errors.Wrapf(model.ErrFormat, "unable to execute template %q: %v", text, err)
	}

	return out.String(), nil
}
