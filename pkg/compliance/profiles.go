package compliance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/user/secsweep/pkg/engine"
)

// Control maps a finding category to a framework control.
type Control struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"` // finding category this control covers
	Description string `yaml:"description"`
}

// Profile represents a compliance standard (e.g. CIS, PCI-DSS)
type Profile struct {
	Standard    string    `yaml:"standard"`
	Description string    `yaml:"description"`
	Controls    []Control `yaml:"controls"`
}

// Profiles manages loaded compliance standards and annotates findings with
// the controls their categories map to.
type Profiles struct {
	byStandard map[string]Profile
}

func NewProfiles() *Profiles {
	return &Profiles{byStandard: make(map[string]Profile)}
}

// Load reads YAML profiles from a directory
func (p *Profiles) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}

		var profile Profile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		p.byStandard[profile.Standard] = profile
	}
	return nil
}

// Standards returns the loaded standard names, sorted.
func (p *Profiles) Standards() []string {
	keys := make([]string, 0, len(p.byStandard))
	for k := range p.byStandard {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Annotate fills each finding's ComplianceList with the controls whose
// category matches, across every loaded standard.
func (p *Profiles) Annotate(findings []engine.Finding) {
	for i := range findings {
		for _, standard := range p.Standards() {
			profile := p.byStandard[standard]
			for _, control := range profile.Controls {
				if control.Category != findings[i].Category {
					continue
				}
				tag := fmt.Sprintf("%s:%s", profile.Standard, control.ID)
				if !contains(findings[i].ComplianceList, tag) {
					findings[i].ComplianceList = append(findings[i].ComplianceList, tag)
				}
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
