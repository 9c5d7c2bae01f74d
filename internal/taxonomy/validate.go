package taxonomy

import (
	"fmt"
	"strings"
)

// Validate checks every module and returns one error listing all problems.
func (r *Registry) Validate() error {
	var errs []string

	if len(r.modules) == 0 {
		errs = append(errs, "no modules defined")
	}

	seenModules := make(map[string]bool, len(r.modules))
	for _, m := range r.modules {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("module %q has an empty id", m.Title))
			continue
		}
		if seenModules[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate module ID: %q", m.ID))
		}
		seenModules[m.ID] = true
		errs = append(errs, validateModule(m)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("taxonomy validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func validateModule(m Module) []string {
	var errs []string

	if len(m.Topics) == 0 {
		return []string{fmt.Sprintf("module %q has no topics", m.ID)}
	}

	seen := make(map[string]bool, len(m.Topics))
	hasRequired := false
	for _, t := range m.Topics {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("module %q: topic %q has an empty id", m.ID, t.Name))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Sprintf("module %q: duplicate topic ID %q", m.ID, t.ID))
		}
		seen[t.ID] = true

		if len(t.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("module %q: topic %q has no keywords", m.ID, t.ID))
		}
		for _, kw := range t.Keywords {
			if strings.TrimSpace(kw) == "" {
				errs = append(errs, fmt.Sprintf("module %q: topic %q has a blank keyword", m.ID, t.ID))
				break
			}
		}
		if t.Required {
			hasRequired = true
		}
	}
	if !hasRequired {
		errs = append(errs, fmt.Sprintf("module %q has no required topic", m.ID))
	}
	return errs
}
