package detect

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

const pipelineSpecEnv = "DETECT_PIPELINE_YAML"

//go:embed detect_pipeline.yaml
var pipelineSpecFS embed.FS

// Stage is one step of the simulated detect pass.
type Stage struct {
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
}

// Spec is the ordered stage plan the worker walks for every job.
type Spec struct {
	Stages []Stage `yaml:"stages"`
}

// fallback plan used when the YAML is missing or invalid.
func fallbackSpec() Spec {
	return Spec{Stages: []Stage{
		{Name: "prepare", Duration: 100 * time.Millisecond},
		{Name: "load_model", Duration: 250 * time.Millisecond},
		{Name: "infer", Duration: 400 * time.Millisecond},
		{Name: "publish", Duration: 50 * time.Millisecond},
	}}
}

// LoadSpec resolves the stage plan: an override file named by
// DETECT_PIPELINE_YAML wins, then the embedded plan, then the hardcoded
// fallback. A broken plan never prevents workers from starting.
func LoadSpec(log *logger.Logger) Spec {
	if path := strings.TrimSpace(os.Getenv(pipelineSpecEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if spec, parseErr := parseSpec(raw); parseErr == nil {
				return spec
			} else if log != nil {
				log.Warn("invalid detect pipeline override, falling back", "path", path, "error", parseErr)
			}
		} else if log != nil {
			log.Warn("unreadable detect pipeline override, falling back", "path", path, "error", err)
		}
	}

	raw, err := pipelineSpecFS.ReadFile("detect_pipeline.yaml")
	if err == nil {
		if spec, parseErr := parseSpec(raw); parseErr == nil {
			return spec
		} else if log != nil {
			log.Warn("invalid embedded detect pipeline, using fallback", "error", parseErr)
		}
	}
	return fallbackSpec()
}

func parseSpec(raw []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return Spec{}, fmt.Errorf("parse detect pipeline yaml: %w", err)
	}
	if len(spec.Stages) == 0 {
		return Spec{}, fmt.Errorf("detect pipeline yaml has no stages")
	}
	for i, st := range spec.Stages {
		if strings.TrimSpace(st.Name) == "" {
			return Spec{}, fmt.Errorf("detect pipeline stage %d has no name", i)
		}
		if st.Duration < 0 {
			return Spec{}, fmt.Errorf("detect pipeline stage %q has negative duration", st.Name)
		}
	}
	return spec, nil
}
