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

// This file defines the command that asks Gemini for a unit's course content.
//
// Logic Flow:
//  1. Read the model.CourseRequest from the input parameter.
//  2. Execute the course prompt template with the course fields and a complete
//     example payload (few-shot prompting keeps the JSON shape stable).
//  3. Send the prompt to the rate-limited model; retries and token counting
//     happen in cloud.GenerateTextResponse.
//  4. Place the raw JSON text on the output parameter for
//     CourseContentJsonToStruct.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// CourseContentCreator generates slides and narration with a generative model.
type CourseContentCreator struct {
	cor.BaseCommand
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

func NewCourseContentCreator(
	name string,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *CourseContentCreator {

	out := &CourseContentCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))
	return out
}

// GenerateParams builds the template data for a course.
func (t *CourseContentCreator) GenerateParams(course model.CourseRequest) map[string]interface{} {
	course = course.WithDefaults()
	params := make(map[string]interface{})
	params["LANGUAGE"] = course.Language
	params["TOPIC"] = course.Topic
	params["LEVEL"] = course.Level
	params["AXES"] = strings.Join(course.Axes, ", ")
	example, _ := json.Marshal(model.GetExampleContent())
	params["EXAMPLE_JSON"] = string(example)
	return params
}

// RenderPrompt executes the prompt template for a course.
func (t *CourseContentCreator) RenderPrompt(course model.CourseRequest) (string, error) {
	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(course)); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buffer.String(), nil
}

func (t *CourseContentCreator) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil || t.generativeAIModel == nil {
		return false
	}
	_, ok := context.Get(t.GetInputParam()).(model.CourseRequest)
	return ok
}

func (t *CourseContentCreator) Execute(context cor.Context) {
	course := context.Get(t.GetInputParam()).(model.CourseRequest)

	prompt, err := t.RenderPrompt(course)
	if err != nil {
		t.Fail(context, err)
		return
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}, Role: "user"},
	}
	out, err := cloud.GenerateTextResponse(context.GetContext(), t.geminiInputTokenCounter, t.geminiOutputTokenCounter, t.geminiRetryCounter, t.generativeAIModel, contents)
	if err != nil {
		t.Fail(context, &ModelServiceError{Err: err})
		return
	}
	t.Succeed(context)
	context.Add(t.GetOutputParam(), out)
}
