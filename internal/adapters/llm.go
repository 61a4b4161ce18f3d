package adapters

import (
	"github.com/DoctorRyner/mistral-go"
)

type LlmAdapter struct {
	Client *mistral.MistralClient
	apiKey string
}

func NewLlmAdapter(apiKey string) *LlmAdapter {
	adapter := &LlmAdapter{apiKey: apiKey}
	adapter.Client = mistral.NewMistralClientDefault(apiKey)
	return adapter
}
