package llm

import "strings"

// ModelCost is USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost prices a token count.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*c.InputPerMTok + float64(outputTokens)*c.OutputPerMTok) / 1e6
}

// priceTable lists model families by ID prefix. Dated snapshots and
// "-latest" aliases match their family; the longest prefix wins.
var priceTable = []struct {
	prefix string
	cost   ModelCost
}{
	{"claude-3-5-haiku", ModelCost{0.8, 4}},
	{"claude-3-haiku", ModelCost{0.25, 1.25}},
	{"claude-haiku-4-5", ModelCost{1, 5}},
	{"claude-3-5-sonnet", ModelCost{3, 15}},
	{"claude-3-7-sonnet", ModelCost{3, 15}},
	{"claude-sonnet-4", ModelCost{3, 15}},
	{"claude-opus-4", ModelCost{15, 75}},
	{"claude-opus-4-5", ModelCost{5, 25}},
	{"claude-opus-4-6", ModelCost{5, 25}},

	{"gpt-4o", ModelCost{2.5, 10}},
	{"gpt-4o-2024-05-13", ModelCost{5, 15}},
	{"gpt-4o-mini", ModelCost{0.15, 0.6}},
	{"gpt-4.1", ModelCost{2, 8}},
	{"gpt-4.1-mini", ModelCost{0.4, 1.6}},
	{"gpt-4.1-nano", ModelCost{0.1, 0.4}},
	{"gpt-5", ModelCost{1.25, 10}},
	{"gpt-5-mini", ModelCost{0.25, 2}},
	{"gpt-5-nano", ModelCost{0.05, 0.4}},
	{"gpt-5.2", ModelCost{1.75, 14}},
	{"o3-mini", ModelCost{1.1, 4.4}},
	{"o4-mini", ModelCost{1.1, 4.4}},

	{"gemini-1.5-flash", ModelCost{0.075, 0.3}},
	{"gemini-1.5-pro", ModelCost{1.25, 5}},
	{"gemini-2.0-flash", ModelCost{0.1, 0.4}},
	{"gemini-2.0-flash-lite", ModelCost{0.075, 0.3}},
	{"gemini-2.5-flash", ModelCost{0.3, 2.5}},
	{"gemini-2.5-flash-lite", ModelCost{0.1, 0.4}},
	{"gemini-2.5-pro", ModelCost{1.25, 10}},
	{"gemini-3-flash", ModelCost{0.5, 3}},
	{"gemini-3-pro", ModelCost{2, 12}},
}

// LookupCost returns pricing for a model ID, or nil if the family is
// unknown. A vendor prefix such as "google/" is ignored.
func LookupCost(modelID string) *ModelCost {
	if i := strings.LastIndexByte(modelID, '/'); i >= 0 {
		modelID = modelID[i+1:]
	}
	best := -1
	for i, p := range priceTable {
		if strings.HasPrefix(modelID, p.prefix) && (best < 0 || len(p.prefix) > len(priceTable[best].prefix)) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	c := priceTable[best].cost
	return &c
}
