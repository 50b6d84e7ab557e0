package catalog

import "strings"

// Resolve maps a plan type of the form "<template_id>-<tier>" (or a bare
// template id) to its template and tier. Template ids themselves contain
// hyphens, so the match is by id prefix rather than by splitting. A missing
// tier suffix resolves to the default tier.
func Resolve(planType string) (*Template, string, bool) {
	for i := range templates {
		t := &templates[i]
		if planType == t.ID {
			return t, DefaultTier, true
		}
		if strings.HasPrefix(planType, t.ID+"-") {
			return t, planType[len(t.ID)+1:], true
		}
	}
	return nil, "", false
}
