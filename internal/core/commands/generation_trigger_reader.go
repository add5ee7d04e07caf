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

// This file defines the first command of the Pub/Sub generation workflow.
//
// Logic Flow:
// A producer publishes a GenerationRequest as JSON to the generation topic.
// The listener places the raw message on the context and this command turns it
// into a validated request for the rest of the chain.
//
//  1. Read the raw JSON message from the input parameter.
//  2. Unmarshal it into a model.GenerationRequest.
//  3. Require a unit id that parses as a UUID, normalized to its canonical form.
//  4. Place the request under RequestParam and the output parameter.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// GenerationTriggerReader parses a generation trigger message.
type GenerationTriggerReader struct {
	cor.BaseCommand
}

func NewGenerationTriggerReader(name string) *GenerationTriggerReader {
	return &GenerationTriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *GenerationTriggerReader) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).(string)
	return ok
}

func (c *GenerationTriggerReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	req, err := ParseGenerationRequest([]byte(in))
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(RequestParam, req)
	context.Add(c.GetOutputParam(), req)
}

// ParseGenerationRequest decodes and validates a generation request. Every
// error wraps cloud.ErrMalformedMessage.
func ParseGenerationRequest(data []byte) (*model.GenerationRequest, error) {
	req := &model.GenerationRequest{}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal generation request: %w", cloud.ErrMalformedMessage, err)
	}
	id, err := uuid.Parse(strings.TrimSpace(req.UnitID))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid unit id %q: %w", cloud.ErrMalformedMessage, req.UnitID, err)
	}
	req.UnitID = id.String()
	return req, nil
}
