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

// Package main contains the logic for setting up and starting the Pub/Sub
// message listeners that trigger course video generation.
package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/workflow"
)

// GenerationTopic is the logical subscription name carrying generation requests.
const GenerationTopic = "GenerationTopic"

// SetupListeners attaches the generation trigger workflow to the generation
// subscription and starts listening. It does nothing when the subscription is
// not configured.
func SetupListeners(ctx context.Context, cloudClients *cloud.ServiceClients, source commands.ContentSource, videoWorkflow *workflow.CourseVideoWorkflow) {
	listener, ok := cloudClients.PubSubListeners[GenerationTopic]
	if !ok {
		slog.Info("no generation subscription configured; pub/sub trigger disabled")
		return
	}
	listener.SetCommand(workflow.NewGenerationTriggerWorkflow(source, videoWorkflow))
	listener.Listen(ctx)
}
