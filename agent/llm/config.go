package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	openrouterx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	MasterModel              string  `envconfig:"MASTER_MODEL" split_words:"true"`
	SalesModel               string  `envconfig:"SALES_MODEL" split_words:"true"`
	VerificationModel        string  `envconfig:"VERIFICATION_MODEL" split_words:"true"`
	UnderwritingModel        string  `envconfig:"UNDERWRITING_MODEL" split_words:"true"`
	SanctionModel            string  `envconfig:"SANCTION_MODEL" split_words:"true"`
	MasterTemperature        float32 `envconfig:"MASTER_TEMPERATURE" split_words:"true" default:"-1"`
	SalesTemperature         float32 `envconfig:"SALES_TEMPERATURE" split_words:"true" default:"-1"`
	VerificationTemperature  float32 `envconfig:"VERIFICATION_TEMPERATURE" split_words:"true" default:"-1"`
	UnderwritingTemperature  float32 `envconfig:"UNDERWRITING_TEMPERATURE" split_words:"true" default:"-1"`
	SanctionTemperature      float32 `envconfig:"SANCTION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, temperature float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if temperature >= 0 {
			temp = temperature
		}
	}

	switch agentType {
	case contractx.AgentTypeMaster:
		override(c.MasterModel, c.MasterTemperature)
	case contractx.AgentTypeSales:
		override(c.SalesModel, c.SalesTemperature)
	case contractx.AgentTypeVerification:
		override(c.VerificationModel, c.VerificationTemperature)
	case contractx.AgentTypeUnderwriting:
		override(c.UnderwritingModel, c.UnderwritingTemperature)
	case contractx.AgentTypeSanction:
		override(c.SanctionModel, c.SanctionTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
