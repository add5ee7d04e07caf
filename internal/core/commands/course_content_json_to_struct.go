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

package commands

import (
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
)

// CourseContentJsonToStruct parses the model's JSON text into a
// model.ContentPayload and stores it under ContentParam and the output
// parameter. Unparseable output is a ContentError.
type CourseContentJsonToStruct struct {
	cor.BaseCommand
}

func NewCourseContentJsonToStruct(name string) *CourseContentJsonToStruct {
	return &CourseContentJsonToStruct{BaseCommand: *cor.NewBaseCommand(name)}
}

func (s *CourseContentJsonToStruct) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	_, ok := context.Get(s.GetInputParam()).(string)
	return ok
}

func (s *CourseContentJsonToStruct) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).(string)

	doc, err := ParseContentPayload(in)
	if err != nil {
		s.Fail(context, err)
		return
	}
	s.Succeed(context)
	context.Add(ContentParam, doc)
	context.Add(s.GetOutputParam(), doc)
}
