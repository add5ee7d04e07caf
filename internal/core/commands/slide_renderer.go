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
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"

	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/jaycherian/gcp-go-course-video/internal/core/model"
)

// slideLabels holds the localized fixed text of a slide document.
type slideLabels struct {
	Slide              string
	Summary            string
	Code               string
	SummaryUnavailable string
	CodeUnavailable    string
}

var slideLocales = map[string]slideLabels{
	"en": {"Slide", "Summary", "Code example", "Summary unavailable", "// Code unavailable"},
	"fr": {"Diapositive", "Résumé", "Exemple de code", "Résumé indisponible", "// Code indisponible"},
	"es": {"Diapositiva", "Resumen", "Ejemplo de código", "Resumen no disponible", "// Código no disponible"},
	"it": {"Diapositiva", "Riepilogo", "Esempio di codice", "Riepilogo non disponibile", "// Codice non disponibile"},
}

func labelsFor(language string) (string, slideLabels) {
	key := strings.ToLower(strings.TrimSpace(language))
	if labels, ok := slideLocales[key]; ok {
		return key, labels
	}
	return model.DefaultLanguage, slideLocales[model.DefaultLanguage]
}

// The document is self-contained: inline CSS, no scripts, no remote fonts and
// no animation, so a capture taken once fonts are ready is final.
const slideTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=1920, height=1080">
<title>{{.Labels.Slide}} {{.ID}}{{if .Title}} - {{.Title}}{{end}}</title>
<style>
  * { box-sizing: border-box; margin: 0; padding: 0; }
  html, body { width: 1920px; height: 1080px; overflow: hidden; }
  body {
    font-family: "Segoe UI", "Helvetica Neue", Arial, sans-serif;
    background: linear-gradient(135deg, #1e3c72 0%, #2a5298 55%, #6a85b6 100%);
    color: #1f2933;
    display: flex; align-items: center; justify-content: center;
  }
  .slide {
    width: 1760px; height: 960px; padding: 56px 72px;
    background: #ffffff; border-radius: 28px;
    box-shadow: 0 30px 60px rgba(0, 0, 0, 0.25);
    display: flex; flex-direction: column; gap: 32px;
  }
  header { display: flex; align-items: baseline; gap: 32px; border-bottom: 4px solid #2a5298; padding-bottom: 20px; }
  .number { font-size: 28px; font-weight: 600; color: #ffffff; background: #2a5298; padding: 8px 22px; border-radius: 999px; white-space: nowrap; }
  h1 { font-size: 60px; line-height: 1.1; color: #1e3c72; }
  .body { flex: 1; display: flex; gap: 48px; min-height: 0; }
  section { flex: 1; display: flex; flex-direction: column; gap: 18px; min-height: 0; }
  h2 { font-size: 32px; color: #2a5298; text-transform: uppercase; letter-spacing: 2px; }
  .summary .content { font-size: 34px; line-height: 1.45; overflow: hidden; }
  .summary .content ul { padding-left: 40px; }
  .summary .content li { margin-bottom: 14px; }
  .summary .content code { font-family: "Fira Code", "Consolas", monospace; background: #eef2f7; padding: 2px 8px; border-radius: 6px; }
  .code pre {
    flex: 1; overflow: hidden; background: #1e1e2e; color: #e0def4;
    border-radius: 18px; padding: 36px; font-size: 28px; line-height: 1.5;
    font-family: "Fira Code", "Consolas", "Courier New", monospace; white-space: pre-wrap;
  }
  .unavailable { color: #7b8794; font-style: italic; }
</style>
</head>
<body>
<main class="slide">
  <header>
    <span class="number">{{.Labels.Slide}} {{.ID}}</span>
    {{if .Title}}<h1>{{.Title}}</h1>{{end}}
  </header>
  <div class="body">
    <section class="summary">
      <h2>{{.Labels.Summary}}</h2>
      {{if .Summary}}<div class="content">{{.Summary}}</div>{{else}}<div class="content unavailable">{{.Labels.SummaryUnavailable}}</div>{{end}}
    </section>
    <section class="code">
      <h2>{{.Labels.Code}}</h2>
      {{if .Code}}{{.Code}}{{else}}<pre><code>{{.Labels.CodeUnavailable}}</code></pre>{{end}}
    </section>
  </div>
</main>
</body>
</html>
`

// SlideRenderer turns a slide into a complete HTML document. Rendering is pure:
// the same slide and language always give the same text.
type SlideRenderer struct {
	template *template.Template
}

func NewSlideRenderer() *SlideRenderer {
	return &SlideRenderer{template: template.Must(template.New("slide").Parse(slideTemplate))}
}

type slideView struct {
	Lang    string
	Labels  slideLabels
	ID      int
	Title   string
	Summary template.HTML
	Code    template.HTML
}

// Render builds the document for slide. Summary and ExampleCode are trusted
// HTML fragments from the content model and are embedded as-is; the title is
// escaped.
func (r *SlideRenderer) Render(slide model.Slide, language string) (string, error) {
	lang, labels := labelsFor(language)
	view := slideView{
		Lang:    lang,
		Labels:  labels,
		ID:      slide.ID,
		Title:   strings.TrimSpace(slide.Title),
		Summary: template.HTML(strings.TrimSpace(slide.Summary)),
		Code:    template.HTML(strings.TrimSpace(slide.ExampleCode)),
	}
	var buffer bytes.Buffer
	if err := r.template.Execute(&buffer, view); err != nil {
		return "", fmt.Errorf("failed to execute slide template: %w", err)
	}
	return buffer.String(), nil
}

// RenderSlides writes one document per identified slide into slides/ and
// records the document manifest on the job.
//
// Logic Flow:
//  1. Skip slides without an id (warning).
//  2. Render and write slides/slide{id}.html; a failure is a RenderError that
//     is logged and leaves the slide out of the manifest.
//  3. Store the manifest sorted by slide id and advance to SLIDES_RENDERED.
type RenderSlides struct {
	cor.BaseCommand
	renderer *SlideRenderer
}

func NewRenderSlides(name string, renderer *SlideRenderer) *RenderSlides {
	if renderer == nil {
		renderer = NewSlideRenderer()
	}
	return &RenderSlides{BaseCommand: *cor.NewBaseCommand(name), renderer: renderer}
}

func (c *RenderSlides) IsExecutable(context cor.Context) bool {
	return hasJob(context) && GetContent(context) != nil
}

func (c *RenderSlides) Execute(context cor.Context) {
	ctx := context.GetContext()
	ws, _ := GetWorkspace(context)
	job := GetJob(context)
	content := GetContent(context)

	rendered := make(map[int]model.Asset)
	for _, slide := range content.Slides {
		if !slide.HasID() {
			slog.WarnContext(ctx, "skipping slide without id", "unit_id", ws.UnitID, "title", slide.Title)
			job.Warn("slide without id skipped (title %q)", slide.Title)
			continue
		}
		path := ws.SlideDocument(slide.ID)
		if err := c.renderOne(slide, job.Course.Language, path); err != nil {
			renderErr := &RenderError{SlideID: slide.ID, Err: err}
			slog.WarnContext(ctx, "slide render failed", "unit_id", ws.UnitID, "slide_id", slide.ID, "error", renderErr)
			job.Warn("%v", renderErr)
			delete(rendered, slide.ID)
			continue
		}
		rendered[slide.ID] = model.Asset{SlideID: slide.ID, FilePath: path}
	}

	documents := make([]model.Asset, 0, len(rendered))
	for _, asset := range rendered {
		documents = append(documents, asset)
	}
	model.SortAssets(documents)
	job.SetDocuments(documents)

	if err := job.Advance(model.StateSlidesRendered); err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(ctx, "slides rendered", "unit_id", ws.UnitID, "count", len(documents))
	c.Succeed(context)
	context.Add(c.GetOutputParam(), documents)
}

func (c *RenderSlides) renderOne(slide model.Slide, language string, path string) error {
	document, err := c.renderer.Render(slide, language)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(document), 0o644)
}
