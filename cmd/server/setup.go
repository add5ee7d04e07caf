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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/services"
	"github.com/jaycherian/gcp-go-course-video/internal/core/workflow"
)

// StateManager holds the components shared by the routes and listeners.
type StateManager struct {
	config              *cloud.Config
	cloud               *cloud.ServiceClients
	videoWorkflow       *workflow.CourseVideoWorkflow
	contentSource       commands.ContentSource
	presentationService *services.PresentationService
}

var state = &StateManager{}

// SetupOS defaults the config directory to ./configs and the runtime to
// "local" unless the environment already sets them.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the cloud clients, the workflows and the services, and
// starts the Pub/Sub listeners.
func InitState(ctx context.Context, config *cloud.Config) error {
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	state.videoWorkflow = workflow.NewCourseVideoWorkflow(config, cloudClients, workflow.NewJobRegistry(), workflow.DefaultStages(config))

	state.contentSource, err = workflow.NewContentSource(config, cloudClients)
	if err != nil {
		return err
	}

	state.presentationService = services.NewPresentationService(config, cloudClients)

	SetupListeners(ctx, cloudClients, state.contentSource, state.videoWorkflow)
	return nil
}
