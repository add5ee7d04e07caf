// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud holds the application's configuration model and the clients for
// the external services the pipeline talks to.
//
// The configuration is loaded from TOML files (see LoadConfig) and is grouped by
// concern:
//   - Application: project identity and signing account.
//   - Workspace: where per-unit working directories live.
//   - Narration: the text-to-speech tool and the language-to-voice table.
//   - Capture: headless browser settings for rasterizing slides.
//   - Encoder: the ffmpeg executable and the fixed codec parameters of a run.
//   - Delivery: the downstream store that receives finished videos.
//   - ModelService: where course content is acquired from.
//   - Storage, BigQueryDataSource: optional archive bucket and job history table.
//   - PromptTemplates, AgentModels: Gemini prompt and model settings.
//   - TopicSubscriptions: Pub/Sub subscriptions that trigger generation.
package cloud

import (
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings lets generated course content through unfiltered.
// Course material is produced from trusted, instructor-provided topics.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Default values used when the configuration leaves a field empty.
const (
	DefaultWorkspaceDir     = "presentations"
	DefaultTTSCommand       = "edge-tts"
	DefaultVoice            = "en-US-AriaNeural"
	DefaultFFmpegCommand    = "ffmpeg"
	DefaultCaptureWidth     = 1920
	DefaultCaptureHeight    = 1080
	DefaultSettleSeconds    = 30
	DefaultDeliveryPath     = "/soft-skills/ai-resources/store/%s"
	DefaultMetadataField    = "courseRequest"
	DefaultTimeoutInSeconds = 300
	ProviderHTTP            = "http"
	ProviderGemini          = "gemini"
)

// DefaultVoices maps a language code to its neural TTS voice.
var DefaultVoices = map[string]string{
	"en": "en-US-AriaNeural",
	"fr": "fr-FR-DeniseNeural",
	"es": "es-ES-ElviraNeural",
	"it": "it-IT-ElsaNeural",
}

type Workspace struct {
	BaseDir string `toml:"base_dir"` // Parent of every {unit_id} working directory.
}

type Narration struct {
	Command          string            `toml:"command"`            // TTS executable, edge-tts compatible.
	DefaultVoice     string            `toml:"default_voice"`      // Voice used for unknown languages.
	Voices           map[string]string `toml:"voices"`             // Language code to voice name.
	TimeoutInSeconds int               `toml:"timeout_in_seconds"` // Upper bound for one synthesis call.
}

// VoiceFor returns the voice configured for language, falling back to the
// default voice for unknown or empty languages.
func (n Narration) VoiceFor(language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if voice, ok := n.Voices[key]; ok && voice != "" {
		return voice
	}
	if voice, ok := DefaultVoices[key]; ok {
		return voice
	}
	if n.DefaultVoice != "" {
		return n.DefaultVoice
	}
	return DefaultVoice
}

type Capture struct {
	ChromePath    string `toml:"chrome_path"`    // Browser executable; empty lets chromedp find one.
	Width         int    `toml:"width"`          // Viewport width in pixels.
	Height        int    `toml:"height"`         // Viewport height in pixels.
	SettleSeconds int    `toml:"settle_seconds"` // Bound on load, font readiness and screenshot.
	NoSandbox     bool   `toml:"no_sandbox"`     // Required when running as root in containers.
	DisableGPU    bool   `toml:"disable_gpu"`    // Passed through to the browser.
}

// SettleTimeout returns the bounded capture wait.
func (c Capture) SettleTimeout() time.Duration {
	if c.SettleSeconds <= 0 {
		return DefaultSettleSeconds * time.Second
	}
	return time.Duration(c.SettleSeconds) * time.Second
}

type Encoder struct {
	Command      string `toml:"command"`       // ffmpeg executable.
	VideoCodec   string `toml:"video_codec"`   // e.g. libx264
	Tune         string `toml:"tune"`          // e.g. stillimage
	AudioCodec   string `toml:"audio_codec"`   // e.g. aac
	AudioBitrate string `toml:"audio_bitrate"` // e.g. 128k
	PixelFormat  string `toml:"pixel_format"`  // e.g. yuv420p
}

type Delivery struct {
	BaseURL          string `toml:"base_url"`           // Downstream store; delivery is disabled when empty.
	PathTemplate     string `toml:"path_template"`      // fmt template receiving the unit id.
	MetadataField    string `toml:"metadata_field"`     // Form field carrying the JSON metadata.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // HTTP client timeout.
}

type ModelService struct {
	Provider         string `toml:"provider"`           // "http" or "gemini".
	BaseURL          string `toml:"base_url"`           // Content model host for the http provider.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // HTTP client timeout.
	AgentModel       string `toml:"agent_model"`        // Key into AgentModels for the gemini provider.
}

type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`    // BigQuery dataset name.
	JobsTable   string `toml:"jobs_table"` // Table receiving one JobRecord per run.
}

type PromptTemplates struct {
	CoursePrompt string `toml:"course"` // Template for generating slides and narration.
}

type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // Burst size; tokens refill at one per second.
}

type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

type Storage struct {
	ArchiveBucket string `toml:"archive_bucket"` // Bucket receiving final videos; archiving is disabled when empty.
	ArchivePrefix string `toml:"archive_prefix"` // Object name prefix inside the bucket.
}

// Config is the top-level configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		Port                      int    `toml:"port"`                         // HTTP listen port.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID; empty disables cloud clients.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
		LogFile                   string `toml:"log_file"`                     // Optional log file mirrored with stdout.
	} `toml:"application"`
	Workspace          Workspace                    `toml:"workspace"`
	Narration          Narration                    `toml:"narration"`
	Capture            Capture                      `toml:"capture"`
	Encoder            Encoder                      `toml:"encoder"`
	Delivery           Delivery                     `toml:"delivery"`
	ModelService       ModelService                 `toml:"model_service"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by logical name, e.g. "GenerationTopic".
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`        // Keyed by logical name, e.g. "creative-flash".
}

// NewConfig returns a Config with its maps initialized and the pipeline
// defaults filled in. Values loaded from TOML overwrite the defaults.
func NewConfig() *Config {
	out := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	out.Application.Name = "course-video"
	out.Application.Port = 8080
	out.Workspace.BaseDir = DefaultWorkspaceDir
	out.Narration.Command = DefaultTTSCommand
	out.Narration.DefaultVoice = DefaultVoice
	out.Narration.Voices = make(map[string]string, len(DefaultVoices))
	for k, v := range DefaultVoices {
		out.Narration.Voices[k] = v
	}
	out.Narration.TimeoutInSeconds = DefaultTimeoutInSeconds
	out.Capture.Width = DefaultCaptureWidth
	out.Capture.Height = DefaultCaptureHeight
	out.Capture.SettleSeconds = DefaultSettleSeconds
	out.Capture.DisableGPU = true
	out.Encoder = Encoder{
		Command:      DefaultFFmpegCommand,
		VideoCodec:   "libx264",
		Tune:         "stillimage",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		PixelFormat:  "yuv420p",
	}
	out.Delivery.PathTemplate = DefaultDeliveryPath
	out.Delivery.MetadataField = DefaultMetadataField
	out.Delivery.TimeoutInSeconds = DefaultTimeoutInSeconds
	out.ModelService.Provider = ProviderHTTP
	out.ModelService.TimeoutInSeconds = DefaultTimeoutInSeconds
	return out
}

// CloudEnabled reports whether Google Cloud clients should be created.
func (c *Config) CloudEnabled() bool {
	return strings.TrimSpace(c.Application.GoogleProjectId) != ""
}

// Seconds converts a configured timeout, using fallback when it is unset.
func Seconds(value int, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
