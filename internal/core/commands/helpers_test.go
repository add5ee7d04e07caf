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

package commands_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	test "github.com/jaycherian/gcp-go-course-video/internal/testutil"
	"github.com/stretchr/testify/require"
)

// newRunContext returns a chain context holding a fresh job and a prepared
// workspace under a temporary directory.
func newRunContext(t *testing.T, language string, content *model.ContentPayload) (cor.Context, *model.Job, model.Workspace) {
	t.Helper()
	ws := model.NewWorkspace(t.TempDir(), test.TestUnitID)
	require.NoError(t, commands.EnsureWorkspace(ws))
	job := model.NewJob(test.TestUnitID, model.CourseRequest{Language: language}.WithDefaults())

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(commands.JobParam, job)
	chCtx.Add(commands.WorkspaceParam, ws)
	if content != nil {
		chCtx.Add(commands.ContentParam, content)
	}
	t.Cleanup(chCtx.Close)
	return chCtx, job, ws
}
