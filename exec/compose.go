package exec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Project is the subset of a compose file the provisioner understands.
	Project struct {
		Dir      string              `yaml:"-"`
		Services map[string]*Service `yaml:"services"`
	}

	Service struct {
		Name        string     `yaml:"-"`
		Image       string     `yaml:"image"`
		Environment envMap     `yaml:"environment"`
		Ports       stringList `yaml:"ports"`
		Volumes     stringList `yaml:"volumes"`
		Command     stringList `yaml:"command"`
		Entrypoint  stringList `yaml:"entrypoint"`
		WorkingDir  string     `yaml:"working_dir"`
		DependsOn   dependsOn  `yaml:"depends_on"`
	}

	envMap     map[string]string
	stringList []string
	dependsOn  []string
)

// LoadProject reads a compose file, interpolating ${VAR} references from vars, the process
// environment and a .env file next to the compose file, in that order.
func LoadProject(path string, vars map[string]string) (*Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read compose file: %w", err)
	}

	dir := filepath.Dir(path)
	dotenv, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unable to read .env next to compose file: %w", err)
	}

	lookup := func(name string) (string, bool) {
		if v, fnd := vars[name]; fnd {
			return v, true
		}
		if v, fnd := os.LookupEnv(name); fnd {
			return v, true
		}
		v, fnd := dotenv[name]
		return v, fnd
	}

	return ParseProject(dir, Interpolate(string(raw), lookup))
}

func ParseProject(dir string, content string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("unable to parse compose file: %w", err)
	}

	if len(p.Services) == 0 {
		return nil, fmt.Errorf("compose file defines no services")
	}

	p.Dir = dir
	for name, svc := range p.Services {
		if svc == nil {
			svc = &Service{}
			p.Services[name] = svc
		}
		svc.Name = name
	}

	return &p, nil
}

// Interpolate expands $VAR, ${VAR}, ${VAR:-default} and ${VAR-default}. $$ is a literal $.
func Interpolate(content string, lookup func(string) (string, bool)) string {
	return os.Expand(content, func(key string) string {
		if key == "$" {
			return "$"
		}

		if name, def, fnd := strings.Cut(key, ":-"); fnd {
			if v, ok := lookup(name); ok && v != "" {
				return v
			}
			return def
		}

		if name, def, fnd := strings.Cut(key, "-"); fnd {
			if v, ok := lookup(name); ok {
				return v
			}
			return def
		}

		v, _ := lookup(key)
		return v
	})
}

// StartOrder lists services so that every service comes after the services it depends on.
func (p *Project) StartOrder() ([]*Service, error) {
	names := make([]string, 0, len(p.Services))
	for name := range p.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		visiting = 1
		done     = 2
	)
	marks := map[string]int{}
	var order []*Service

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		svc, fnd := p.Services[name]
		if !fnd {
			return fmt.Errorf("service %q depends on undefined service %q", path[len(path)-1], name)
		}

		switch marks[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle: %s", strings.Join(append(path, name), " -> "))
		}

		marks[name] = visiting
		deps := append([]string(nil), svc.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		marks[name] = done
		order = append(order, svc)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// Binds resolves relative host paths of bind mounts against the project directory. Named volumes
// are passed through.
func (s *Service) Binds(dir string) []string {
	var binds []string
	for _, v := range s.Volumes {
		host, rest, fnd := strings.Cut(v, ":")
		if !fnd {
			continue
		}

		switch {
		case strings.HasPrefix(host, "~"):
			if home, err := os.UserHomeDir(); err == nil {
				host = filepath.Join(home, strings.TrimPrefix(host, "~"))
			}
		case strings.HasPrefix(host, "."):
			host = filepath.Join(dir, host)
		}

		binds = append(binds, host+":"+rest)
	}

	return binds
}

func (e envMap) List() []string {
	result := make([]string, 0, len(e))
	for k, v := range e {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

func (e *envMap) UnmarshalYAML(value *yaml.Node) error {
	result := envMap{}

	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			result[value.Content[i].Value] = value.Content[i+1].Value
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			k, v, _ := strings.Cut(item.Value, "=")
			result[k] = v
		}
	default:
		return fmt.Errorf("line %d: environment must be a mapping or a list", value.Line)
	}

	*e = result
	return nil
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = strings.Fields(value.Value)
	case yaml.SequenceNode:
		result := make(stringList, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a plain value", item.Line)
			}
			result = append(result, item.Value)
		}
		*l = result
	default:
		return fmt.Errorf("line %d: expected a string or a list", value.Line)
	}

	return nil
}

func (d *dependsOn) UnmarshalYAML(value *yaml.Node) error {
	var result dependsOn

	switch value.Kind {
	case yaml.SequenceNode:
		for _, item := range value.Content {
			result = append(result, item.Value)
		}
	case yaml.MappingNode:
		for i := 0; i < len(value.Content); i += 2 {
			result = append(result, value.Content[i].Value)
		}
	default:
		return fmt.Errorf("line %d: depends_on must be a list or a mapping", value.Line)
	}

	*d = result
	return nil
}
