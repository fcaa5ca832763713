// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"encoding/base64"
	"encoding/json"

	"github.com/jeranaias/aostock-tui/internal/config"
)

// ModelSettings is one model entry of the settings header.
type ModelSettings struct {
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base,omitempty"`
}

// Settings is the JSON document forwarded in the X-Settings header. Field
// names are the ones the server reads.
type Settings struct {
	ServerAPIURL              string        `json:"serverApiUrl"`
	AssistantID               string        `json:"assistantId"`
	ServerAPIKey              string        `json:"serverApiKey,omitempty"`
	RemoteFinancialDataAPIURL string        `json:"remoteFinancialDataApiUrl"`
	RemoteFinancialDataAPIKey string        `json:"remoteFinancialDataApiKey"`
	IntentRecognitionModel    ModelSettings `json:"intentRecognitionModel"`
	AnalysisModel             ModelSettings `json:"analysisModel"`
}

// SettingsFromConfig builds the settings document from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	model := func(m config.ModelConfig) ModelSettings {
		return ModelSettings{Model: m.Model, APIKey: m.APIKey, APIBase: m.APIBase}
	}
	return Settings{
		ServerAPIURL:              cfg.Server.APIURL,
		AssistantID:               cfg.Server.AssistantID,
		ServerAPIKey:              cfg.Server.APIKey,
		RemoteFinancialDataAPIURL: cfg.Data.APIURL,
		RemoteFinancialDataAPIKey: cfg.Data.APIKey,
		IntentRecognitionModel:    model(cfg.Models.IntentRecognition),
		AnalysisModel:             model(cfg.Models.Analysis),
	}
}

// Header returns the base64-encoded JSON value for the X-Settings header.
func (s Settings) Header() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSettingsHeader reverses Header.
func DecodeSettingsHeader(v string) (Settings, error) {
	var s Settings
	data, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}
