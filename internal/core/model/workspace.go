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

package model

import (
	"fmt"
	"path/filepath"
)

// Workspace derives every path used for a unit from its id and a slide id.
//
//	{base}/{unit}/slides/slide{id}.html   rendered documents (kept)
//	{base}/{unit}/audios/audio{id}.mp3    narration (kept)
//	{base}/{unit}/slide{id}.png           captured image (transient)
//	{base}/{unit}/slide{id}.mp4           per-slide segment (transient)
//	{base}/{unit}/videos.txt              concat manifest (transient)
//	{base}/{unit}/{unit}.mp4              final video
//	{base}/{unit}/slides.json             content payload
type Workspace struct {
	BaseDir string
	UnitID  string
}

func NewWorkspace(baseDir string, unitID string) Workspace {
	return Workspace{BaseDir: baseDir, UnitID: unitID}
}

func (w Workspace) Root() string {
	return filepath.Join(w.BaseDir, w.UnitID)
}

func (w Workspace) SlidesDir() string {
	return filepath.Join(w.Root(), "slides")
}

func (w Workspace) AudiosDir() string {
	return filepath.Join(w.Root(), "audios")
}

func (w Workspace) SlideDocument(slideID int) string {
	return filepath.Join(w.SlidesDir(), fmt.Sprintf("slide%d.html", slideID))
}

func (w Workspace) AudioFile(slideID int) string {
	return filepath.Join(w.AudiosDir(), fmt.Sprintf("audio%d.mp3", slideID))
}

func (w Workspace) SlideImage(slideID int) string {
	return filepath.Join(w.Root(), fmt.Sprintf("slide%d.png", slideID))
}

func (w Workspace) SegmentVideo(slideID int) string {
	return filepath.Join(w.Root(), fmt.Sprintf("slide%d.mp4", slideID))
}

func (w Workspace) ConcatManifest() string {
	return filepath.Join(w.Root(), "videos.txt")
}

func (w Workspace) FinalVideo() string {
	return filepath.Join(w.Root(), fmt.Sprintf("%s.mp4", w.UnitID))
}

func (w Workspace) ContentManifest() string {
	return filepath.Join(w.Root(), "slides.json")
}
