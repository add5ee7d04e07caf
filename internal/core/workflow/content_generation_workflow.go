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

package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// ContentGenerationWorkflow produces course content with Gemini. It is the
// "gemini" ContentSource: a chain that renders the course prompt, calls the
// model and parses the JSON answer.
type ContentGenerationWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewContentGenerationWorkflow(genaiModel *cloud.QuotaAwareGenerativeAIModel, coursePrompt string) (*ContentGenerationWorkflow, error) {
	courseTemplate, err := template.New("course-template").Parse(coursePrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse course prompt: %w", err)
	}
	chain := cor.NewBaseChain("course-content-generation")
	chain.AddCommand(commands.NewCourseContentCreator("generate-course-content", genaiModel, courseTemplate))
	chain.AddCommand(commands.NewCourseContentJsonToStruct("convert-course-content"))
	return &ContentGenerationWorkflow{
		BaseCommand: *cor.NewBaseCommand("content-generation-workflow"),
		chain:       chain,
	}, nil
}

func (w *ContentGenerationWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *ContentGenerationWorkflow) Generate(ctx context.Context, unitID string, course model.CourseRequest) (*model.ContentPayload, error) {
	chCtx := newChainContext(ctx)
	chCtx.Add(cor.CtxIn, course.WithDefaults())
	w.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		return nil, err
	}
	content := commands.GetContent(chCtx)
	if content == nil {
		return nil, &commands.ModelServiceError{Err: fmt.Errorf("no content generated for unit %s", unitID)}
	}
	return content, nil
}

// NewContentSource picks the content source configured in model_service. It
// returns nil when no source is configured, in which case requests must carry
// their own content.
func NewContentSource(config *cloud.Config, serviceClients *cloud.ServiceClients) (commands.ContentSource, error) {
	switch strings.ToLower(strings.TrimSpace(config.ModelService.Provider)) {
	case cloud.ProviderGemini:
		if serviceClients == nil {
			return nil, errors.New("gemini content source requires cloud clients")
		}
		genaiModel, ok := serviceClients.AgentModels[config.ModelService.AgentModel]
		if !ok {
			return nil, fmt.Errorf("agent model %q is not configured", config.ModelService.AgentModel)
		}
		source, err := NewContentGenerationWorkflow(genaiModel, config.PromptTemplates.CoursePrompt)
		if err != nil {
			return nil, err
		}
		return source, nil
	case cloud.ProviderHTTP, "":
		if config.ModelService.BaseURL == "" {
			return nil, nil
		}
		return commands.NewHTTPContentClient(config.ModelService, &http.Client{
			Timeout: cloud.Seconds(config.ModelService.TimeoutInSeconds, cloud.DefaultTimeoutInSeconds),
		}), nil
	default:
		return nil, fmt.Errorf("unknown model service provider %q", config.ModelService.Provider)
	}
}
