// Package pipeline implements pipeline construction.
package pipeline

import "github.com/archiveteam/warrior-pipeline/internal/taskgraph"

// Builder provides a fluent interface for assembling a pipeline's task
// chain, an alternative to populating Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder(name string) *Builder {
	return &Builder{config: Config{Name: name}}
}

// Then appends task to the chain.
func (b *Builder) Then(task taskgraph.Task) *Builder {
	b.config.Tasks = append(b.config.Tasks, task)
	return b
}

// ThenAll appends every task in tasks to the chain, in order.
func (b *Builder) ThenAll(tasks ...taskgraph.Task) *Builder {
	b.config.Tasks = append(b.config.Tasks, tasks...)
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() *Pipeline {
	return New(b.config)
}
