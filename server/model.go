package server

import (
	"errors"

	"github.com/ezoic/churnpulse/pipeline"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
	"github.com/ezoic/churnpulse/pkg/log"
)

// ModelHandle is the pipeline loaded once at startup and shared read-only by
// every request. A handle without a pipeline reports the model as unavailable.
type ModelHandle struct {
	pipe *pipeline.Pipeline
	path string
}

// LoadModelHandle loads the pipeline at path. A missing artifact yields an empty
// handle; any other failure is returned.
func LoadModelHandle(path string) (*ModelHandle, error) {
	logger := log.GetLoggerWithName("server")
	p, err := pipeline.Load(path)
	if err != nil {
		if errors.Is(err, cpErrors.ErrMissingArtifact) {
			logger.Warn("No model artifact, serving without a model", log.PathKey, path)
			return &ModelHandle{path: path}, nil
		}
		return nil, err
	}
	return &ModelHandle{pipe: p, path: path}, nil
}

// NewModelHandle wraps an already loaded pipeline; nil means no model.
func NewModelHandle(p *pipeline.Pipeline) *ModelHandle {
	return &ModelHandle{pipe: p}
}

// Loaded reports whether a pipeline is available.
func (h *ModelHandle) Loaded() bool {
	return h != nil && h.pipe != nil
}

// Pipeline returns the loaded pipeline, or nil.
func (h *ModelHandle) Pipeline() *pipeline.Pipeline {
	if h == nil {
		return nil
	}
	return h.pipe
}

// Path is where the handle looked for the artifact.
func (h *ModelHandle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}
