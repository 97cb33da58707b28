package openai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptConfig holds the drafting prompt and model parameters
type PromptConfig struct {
	DirectiveDraft struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"directive_draft"`
}

// LoadPrompts reads prompts from a YAML file; an empty path selects the built-in prompts
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data := defaultPrompts
	if promptsPath != "" {
		var err error
		if data, err = os.ReadFile(promptsPath); err != nil {
			return nil, fmt.Errorf("failed to read prompts file: %w", err)
		}
	}

	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if prompts.DirectiveDraft.System == "" || prompts.DirectiveDraft.UserTemplate == "" {
		return nil, fmt.Errorf("prompts file has no directive_draft prompt")
	}

	return &prompts, nil
}

func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
