package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/archiveteam/warrior-pipeline/internal/pipeline"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

// rawFile is the top-level shape of a pipeline descriptor: a name and
// an ordered list of task nodes, each a {kind, name, ...params} map.
type rawFile struct {
	Name  string                   `yaml:"name"`
	Tasks []map[string]interface{} `yaml:"tasks"`
}

// Load reads and parses the pipeline file at path, building its task
// chain through reg.
func Load(path string, reg *Registry) (pipeline.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	return Parse(data, reg)
}

// Parse decodes a pipeline descriptor's YAML bytes and builds its task
// chain through reg. Task nodes are built in declared order; building
// one does not require any other to have been built first, so a
// failure reports exactly which node and kind are at fault.
func Parse(data []byte, reg *Registry) (pipeline.Config, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return pipeline.Config{}, fmt.Errorf("descriptor: parse yaml: %w", err)
	}
	if raw.Name == "" {
		return pipeline.Config{}, fmt.Errorf("descriptor: pipeline file requires a name")
	}
	if len(raw.Tasks) == 0 {
		return pipeline.Config{}, fmt.Errorf("descriptor: pipeline %q declares no tasks", raw.Name)
	}

	cfg := pipeline.Config{Name: raw.Name}
	for i, node := range raw.Tasks {
		task, err := buildTaskNode(node, reg)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("descriptor: pipeline %q task #%d: %w", raw.Name, i, err)
		}
		cfg.Tasks = append(cfg.Tasks, task)
	}
	return cfg, nil
}

func buildTaskNode(node map[string]interface{}, reg *Registry) (taskgraph.Task, error) {
	return buildInnerTask(Params(node), reg)
}
