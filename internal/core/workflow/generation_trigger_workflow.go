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
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
)

// GenerationTriggerWorkflow handles one generation trigger message from
// Pub/Sub: parse the request, acquire content when the message carries none,
// then run the course video workflow.
type GenerationTriggerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewGenerationTriggerWorkflow(source commands.ContentSource, videoWorkflow *CourseVideoWorkflow) *GenerationTriggerWorkflow {
	chain := cor.NewBaseChain("generation-trigger")
	chain.AddCommand(commands.NewGenerationTriggerReader("generation-trigger-reader"))
	chain.AddCommand(commands.NewContentAcquisition("acquire-content", source))
	chain.AddCommand(videoWorkflow)
	return &GenerationTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("generation-trigger-workflow"),
		chain:       chain,
	}
}

func (w *GenerationTriggerWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

func (w *GenerationTriggerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}
