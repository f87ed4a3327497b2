package scanners

import (
	"context"
	"fmt"
	"sort"

	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/engine"
)

// Result is what a single scanner produced for one target.
type Result struct {
	Tool     string
	Findings []engine.Finding
	Summary  engine.ToolSummary
	Raw      []byte // the tool's own report, stored verbatim
}

// Scanner wraps one third-party tool. All detection logic lives inside the
// tool's container; the wrapper only builds the docker invocation and parses
// the report it writes.
type Scanner interface {
	Name() string
	Description() string
	Scan(ctx context.Context, target string) (*Result, error)
}

// Factory builds a scanner from the shared configuration.
type Factory func(cfg *config.Config, docker *DockerRunner) Scanner

var registry = map[string]Factory{
	"checkov": func(cfg *config.Config, d *DockerRunner) Scanner {
		return &CheckovScanner{docker: d, image: imageFor(cfg, "checkov", DefaultCheckovImage)}
	},
	"trivy": func(cfg *config.Config, d *DockerRunner) Scanner {
		return &TrivyScanner{docker: d, image: imageFor(cfg, "trivy", DefaultTrivyImage)}
	},
	"grype": func(cfg *config.Config, d *DockerRunner) Scanner {
		return &GrypeScanner{docker: d, image: imageFor(cfg, "grype", DefaultGrypeImage)}
	},
	"trufflehog": func(cfg *config.Config, d *DockerRunner) Scanner {
		return &TruffleHogScanner{docker: d, image: imageFor(cfg, "trufflehog", DefaultTruffleHogImage)}
	},
	"clamav": func(cfg *config.Config, d *DockerRunner) Scanner {
		return &ClamAVScanner{docker: d, image: imageFor(cfg, "clamav", DefaultClamAVImage)}
	},
	"xeol": func(cfg *config.Config, d *DockerRunner) Scanner {
		return &XeolScanner{docker: d, image: imageFor(cfg, "xeol", DefaultXeolImage)}
	},
	"sonarqube": func(cfg *config.Config, d *DockerRunner) Scanner {
		return NewSonarQubeScanner(cfg, d)
	},
}

func imageFor(cfg *config.Config, name, def string) string {
	if sc, ok := cfg.Scanners[name]; ok && sc.Image != "" {
		return sc.Image
	}
	return def
}

// Names lists all known scanners in stable order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a scanner by name.
func New(name string, cfg *config.Config, docker *DockerRunner) (Scanner, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scanner %q (available: %v)", name, Names())
	}
	return factory(cfg, docker), nil
}

// Select resolves the scanners to run: the explicit list if given, otherwise
// every registered scanner that the config has not disabled.
func Select(cfg *config.Config, docker *DockerRunner, only []string) ([]Scanner, error) {
	names := only
	if len(names) == 0 {
		for _, name := range Names() {
			if cfg.Enabled(name) {
				names = append(names, name)
			}
		}
	}

	var out []Scanner
	for _, name := range names {
		s, err := New(name, cfg, docker)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
