package cost

import "strings"

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

var pricing = map[string]Price{
	"haiku":  {Input: 0.25, Output: 1.25},
	"sonnet": {Input: 3.0, Output: 15.0},
	"opus":   {Input: 15.0, Output: 75.0},
}

// PriceFor returns the price of a short model name. Unknown models are priced as sonnet.
func PriceFor(model string) Price {
	if p, ok := pricing[strings.ToLower(model)]; ok {
		return p
	}
	return pricing["sonnet"]
}

// Calculate returns the USD cost of a token count on model.
func Calculate(model string, inputTokens, outputTokens int64) float64 {
	p := PriceFor(model)
	return float64(inputTokens)*p.Input/1_000_000 + float64(outputTokens)*p.Output/1_000_000
}

// EstimateTokens approximates token usage from text sizes. The output of the
// generation run is not metered, so this is a size-based estimate only.
func EstimateTokens(description, result string) (input, output int64) {
	return int64(len(description)) * 2, int64(len(result))
}
