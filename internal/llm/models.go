package llm

// modelAliases maps short names accepted in configuration to vendor model IDs.
var modelAliases = map[string]string{
	"claude-haiku":  "claude-haiku-4-5-20251001",
	"claude-sonnet": "claude-sonnet-4-5-20250929",
	"gpt-mini":      "gpt-4o-mini",
	"gpt":           "gpt-4o",
	"gemini-flash":  "gemini-2.0-flash",
	"gemini-pro":    "gemini-2.5-pro",
}

// resolveModel expands an alias. Unknown names are used as given.
func resolveModel(name string) string {
	if id, ok := modelAliases[name]; ok {
		return id
	}
	return name
}
