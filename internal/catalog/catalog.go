// Package catalog holds the static registry of deployable AI-stack templates
// and their tiered pricing. The table is process-wide, immutable data.
package catalog

// TierPricing is the monthly price (in cents) and feature list for one tier.
type TierPricing struct {
	Price    int      `json:"price"`
	Features []string `json:"features"`
}

// Template describes one deployable stack.
type Template struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Features    []string               `json:"features"`
	ComposeKey  string                 `json:"-"`
	Port        int                    `json:"port"`
	Pricing     map[string]TierPricing `json:"pricing"`
}

// DefaultTier is the pricing tier used when a requested tier key is unknown.
const DefaultTier = "basic"

var templates = []Template{
	{
		ID:          "ollama-webui",
		Name:        "Private AI Chat",
		Description: "Ollama + Open WebUI for private AI conversations",
		Features:    []string{"Private AI models", "No data sharing", "Latest models", "Auto-updates"},
		ComposeKey:  "ollama-webui",
		Port:        3000,
		Pricing: map[string]TierPricing{
			"basic":      {Price: 2000, Features: []string{"Manual updates", "Basic support"}},
			"pro":        {Price: 5000, Features: []string{"Auto-updates", "Zero downtime", "Priority support"}},
			"enterprise": {Price: 15000, Features: []string{"Real-time updates", "Custom schedules", "SLA"}},
		},
	},
	{
		ID:          "rag-app",
		Name:        "Document AI Assistant",
		Description: "Upload documents and chat with AI about them",
		Features:    []string{"Document upload", "Smart search", "Context-aware AI", "Auto-updates"},
		ComposeKey:  "rag-app",
		Port:        8501,
		Pricing: map[string]TierPricing{
			"basic":      {Price: 3000, Features: []string{"Manual updates", "Basic support"}},
			"pro":        {Price: 7500, Features: []string{"Auto-updates", "Zero downtime", "Priority support"}},
			"enterprise": {Price: 20000, Features: []string{"Real-time updates", "Custom schedules", "SLA"}},
		},
	},
	{
		ID:          "ai-agent",
		Name:        "AI Customer Agent",
		Description: "24/7 AI customer support that never sleeps",
		Features:    []string{"24/7 availability", "Multi-language", "CRM integration", "Auto-updates"},
		ComposeKey:  "ai-agent",
		Port:        8000,
		Pricing: map[string]TierPricing{
			"basic":      {Price: 5000, Features: []string{"Manual updates", "Basic support"}},
			"pro":        {Price: 12500, Features: []string{"Auto-updates", "Zero downtime", "Priority support"}},
			"enterprise": {Price: 30000, Features: []string{"Real-time updates", "Custom schedules", "SLA"}},
		},
	},
}

var byID = func() map[string]*Template {
	m := make(map[string]*Template, len(templates))
	for i := range templates {
		m[templates[i].ID] = &templates[i]
	}
	return m
}()

// Get returns the template with the given id.
func Get(id string) (*Template, bool) {
	t, ok := byID[id]
	return t, ok
}

// List returns all templates in stable declaration order.
func List() []Template {
	return templates
}

// PriceFor resolves the tier pricing, falling back to the basic tier when the
// tier key is unknown. The second return reports whether the fallback fired.
func (t *Template) PriceFor(tier string) (TierPricing, bool) {
	if p, ok := t.Pricing[tier]; ok {
		return p, false
	}
	return t.Pricing[DefaultTier], true
}
