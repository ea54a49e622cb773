package config

// Model represents an available completion model
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
}

// ModelsConfig holds the enumerated set of supported models. The
// catalog is fixed at two tiers: a higher-capability default and a
// faster, cheaper alternative used for short auxiliary calls such as
// title inference.
type ModelsConfig struct {
	models []Model
}

// NewModelsConfig returns the supported model catalog
func NewModelsConfig() *ModelsConfig {
	return &ModelsConfig{
		models: []Model{
			{
				ID:          "claude-3-5-sonnet-20241022",
				Name:        "Claude 3.5 Sonnet",
				Description: "Most intelligent model",
				Tier:        "default",
			},
			{
				ID:          "claude-3-5-haiku-20241022",
				Name:        "Claude 3.5 Haiku",
				Description: "Fastest model for daily tasks",
				Tier:        "fast",
			},
		},
	}
}

// GetAvailableModels returns the list of available models
func (mc *ModelsConfig) GetAvailableModels() []Model {
	return mc.models
}

// IsValidModel checks if a model ID is in the list of available models
func (mc *ModelsConfig) IsValidModel(modelID string) bool {
	for _, model := range mc.models {
		if model.ID == modelID {
			return true
		}
	}
	return false
}

// DefaultModel returns the higher-capability default model
func (mc *ModelsConfig) DefaultModel() string {
	return mc.models[0].ID
}

// FastModel returns the cheaper tier used for auxiliary calls
func (mc *ModelsConfig) FastModel() string {
	for _, model := range mc.models {
		if model.Tier == "fast" {
			return model.ID
		}
	}
	return mc.models[0].ID
}
