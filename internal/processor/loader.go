package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/priority"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// fileTemplate is the on-disk template document. YAML decodes into plain
// interface{} trees which are converted into ConfigValues afterwards; JSON
// files go through the same path so both formats share one shape.
type fileTemplate struct {
	Name          string                 `json:"name" yaml:"name"`
	Configuration map[string]interface{} `json:"configuration" yaml:"configuration"`
	Conditions    map[string]struct {
		If   string      `json:"if" yaml:"if"`
		Then interface{} `json:"then" yaml:"then"`
		Else interface{} `json:"else" yaml:"else"`
	} `json:"conditions" yaml:"conditions"`
	Evaluations     map[string]rtbtypes.Evaluation `json:"evaluations" yaml:"evaluations"`
	CustomFunctions []rtbtypes.CustomFunction      `json:"custom_functions" yaml:"custom_functions"`
	Meta            rtbtypes.Meta                  `json:"meta" yaml:"meta"`
	Priority        *struct {
		Level        int      `json:"level" yaml:"level"`
		Category     string   `json:"category" yaml:"category"`
		InheritsFrom []string `json:"inherits_from" yaml:"inherits_from"`
	} `json:"priority" yaml:"priority"`
}

// LoadTemplateFile parses one template document from a .json, .yaml, or
// .yml file. A missing priority section defaults to the lowest-precedence
// level.
func LoadTemplateFile(path string) (rtbtypes.Template, rtbtypes.PriorityInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("reading template file: %w", err)
	}

	var ft fileTemplate
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &ft); err != nil {
			return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ft); err != nil {
			return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	default:
		return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("unsupported template format %q", filepath.Ext(path))
	}

	if ft.Name == "" {
		// Fall back to the file stem so loose files register cleanly.
		ft.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	tpl := rtbtypes.Template{
		Name:            ft.Name,
		Configuration:   make(map[string]rtbtypes.ConfigValue, len(ft.Configuration)),
		Evaluations:     ft.Evaluations,
		CustomFunctions: ft.CustomFunctions,
		Meta:            ft.Meta,
	}
	for k, raw := range ft.Configuration {
		v, err := rtbtypes.FromInterface(raw)
		if err != nil {
			return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("template %s parameter %q: %w", ft.Name, k, err)
		}
		tpl.Configuration[k] = v
	}
	if len(ft.Conditions) > 0 {
		tpl.Conditions = make(map[string]rtbtypes.Conditional, len(ft.Conditions))
		for k, c := range ft.Conditions {
			then, err := rtbtypes.FromInterface(c.Then)
			if err != nil {
				return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("template %s condition %q: %w", ft.Name, k, err)
			}
			cond := rtbtypes.Conditional{If: c.If, Then: then}
			if c.Else != nil {
				els, err := rtbtypes.FromInterface(c.Else)
				if err != nil {
					return rtbtypes.Template{}, rtbtypes.PriorityInfo{}, fmt.Errorf("template %s condition %q: %w", ft.Name, k, err)
				}
				cond.Else = &els
			}
			tpl.Conditions[k] = cond
		}
	}

	prio := rtbtypes.PriorityInfo{
		TemplateName: tpl.Name,
		Level:        priority.Default,
		Source:       path,
	}
	if ft.Priority != nil {
		prio.Level = ft.Priority.Level
		prio.Category = ft.Priority.Category
		prio.InheritsFrom = ft.Priority.InheritsFrom
	}
	if len(ft.Meta.Author) > 0 {
		prio.Author = ft.Meta.Author[0]
	}
	return tpl, prio, nil
}

// LoadTemplateDir loads every template file directly under dir, sorted by
// name. Subdirectories are skipped.
func LoadTemplateDir(dir string) ([]rtbtypes.Template, []rtbtypes.PriorityInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading template dir: %w", err)
	}
	var (
		tpls  []rtbtypes.Template
		prios []rtbtypes.PriorityInfo
	)
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		tpl, prio, err := LoadTemplateFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, err
		}
		tpls = append(tpls, tpl)
		prios = append(prios, prio)
	}
	return tpls, prios, nil
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
