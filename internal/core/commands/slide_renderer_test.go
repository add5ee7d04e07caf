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
	"os"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-course-video/internal/core/commands"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
	test "github.com/jaycherian/gcp-go-course-video/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIsSelfContained(t *testing.T) {
	renderer := commands.NewSlideRenderer()
	doc, err := renderer.Render(model.Slide{
		ID:          4,
		Title:       "Maps & <Slices>",
		Summary:     "<ul><li>Keys are unique</li></ul>",
		ExampleCode: "<pre><code>m := map[string]int{}</code></pre>",
	}, "en")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "Slide 4")
	assert.Contains(t, doc, "Maps &amp; &lt;Slices&gt;")
	assert.Contains(t, doc, "<ul><li>Keys are unique</li></ul>")
	assert.Contains(t, doc, "<pre><code>m := map[string]int{}</code></pre>")
	assert.NotContains(t, doc, "<script")
	assert.NotContains(t, doc, "http://")
	assert.NotContains(t, doc, "https://")
	assert.NotContains(t, doc, "animation")

	again, err := renderer.Render(model.Slide{
		ID:          4,
		Title:       "Maps & <Slices>",
		Summary:     "<ul><li>Keys are unique</li></ul>",
		ExampleCode: "<pre><code>m := map[string]int{}</code></pre>",
	}, "en")
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestRenderPlaceholders(t *testing.T) {
	renderer := commands.NewSlideRenderer()

	doc, err := renderer.Render(model.Slide{ID: 2}, "en")
	require.NoError(t, err)
	assert.Contains(t, doc, "<pre><code>// Code unavailable</code></pre>")
	assert.Contains(t, doc, "Summary unavailable")
	assert.NotContains(t, doc, "<h1>")

	doc, err = renderer.Render(model.Slide{ID: 2, Title: "Bonjour"}, "FR")
	require.NoError(t, err)
	assert.Contains(t, doc, `lang="fr"`)
	assert.Contains(t, doc, "Diapositive 2")
	assert.Contains(t, doc, "// Code indisponible")

	doc, err = renderer.Render(model.Slide{ID: 2}, "pt")
	require.NoError(t, err)
	assert.Contains(t, doc, `lang="en"`)
}

func TestRenderSlidesWritesSortedManifest(t *testing.T) {
	content := &model.ContentPayload{
		Slides: []model.Slide{
			{ID: 3, Title: "Third"},
			{ID: 0, Title: "No id"},
			{ID: 1, Title: "First"},
		},
	}
	chCtx, job, ws := newRunContext(t, "en", content)

	cmd := commands.NewRenderSlides("render", nil)
	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)
	require.NoError(t, chCtx.Err())

	documents := job.GetDocuments()
	require.Len(t, documents, 2)
	assert.Equal(t, 1, documents[0].SlideID)
	assert.Equal(t, 3, documents[1].SlideID)
	for _, document := range documents {
		assert.FileExists(t, document.FilePath)
		assert.Equal(t, ws.SlideDocument(document.SlideID), document.FilePath)
	}
	assert.Equal(t, model.StateSlidesRendered, job.CurrentState())
	assert.Len(t, job.Snapshot().Warnings, 1)

	entries, err := os.ReadDir(ws.SlidesDir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPrepareWorkspaceStoresContent(t *testing.T) {
	content := test.GetTestContent()
	chCtx, _, ws := newRunContext(t, "en", content)

	commands.NewPrepareWorkspace("prepare").Execute(chCtx)
	require.NoError(t, chCtx.Err())

	stored, err := commands.ReadContentManifest(ws)
	require.NoError(t, err)
	assert.Equal(t, content.Slides, stored.Slides)
	assert.Equal(t, content.Speech, stored.Speech)
}

func TestReadContentManifestMissing(t *testing.T) {
	ws := model.NewWorkspace(t.TempDir(), test.TestUnitID)
	_, err := commands.ReadContentManifest(ws)

	var missing *commands.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ws.ContentManifest(), missing.Path)
}
