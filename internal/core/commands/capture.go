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
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/jaycherian/gcp-go-course-video/internal/cloud"
)

// Capturer rasterizes a rendered slide document into an image.
type Capturer interface {
	Capture(ctx context.Context, documentPath string, imagePath string) error
}

// settleScript resolves once web fonts are loaded and two frames have been
// painted, so the screenshot shows the final layout.
const settleScript = `document.fonts.ready.then(() => new Promise(resolve =>
  requestAnimationFrame(() => requestAnimationFrame(() => resolve(true)))))`

// ChromeCapturer screenshots documents with a headless Chrome driven over the
// DevTools protocol. Every Capture call starts its own browser process and
// tears it down before returning, on success, error or timeout alike.
type ChromeCapturer struct {
	execPath      string
	width         int
	height        int
	settleTimeout time.Duration
	noSandbox     bool
	disableGPU    bool
}

func NewChromeCapturer(config cloud.Capture) *ChromeCapturer {
	width, height := config.Width, config.Height
	if width <= 0 {
		width = cloud.DefaultCaptureWidth
	}
	if height <= 0 {
		height = cloud.DefaultCaptureHeight
	}
	return &ChromeCapturer{
		execPath:      config.ChromePath,
		width:         width,
		height:        height,
		settleTimeout: config.SettleTimeout(),
		noSandbox:     config.NoSandbox,
		disableGPU:    config.DisableGPU,
	}
}

func (c *ChromeCapturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.WindowSize(c.width, c.height),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if c.disableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if c.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	return opts
}

// DocumentURL returns the file:// URL of a document path.
func DocumentURL(documentPath string) (string, error) {
	abs, err := filepath.Abs(documentPath)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (c *ChromeCapturer) Capture(ctx context.Context, documentPath string, imagePath string) error {
	if _, err := os.Stat(documentPath); err != nil {
		return &MissingArtifactError{Path: documentPath}
	}
	target, err := DocumentURL(documentPath)
	if err != nil {
		return fmt.Errorf("resolve document url: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, c.settleTimeout)
	defer cancelRun()

	var ready bool
	var image []byte
	err = chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(c.width), int64(c.height)),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(settleScript, &ready, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.CaptureScreenshot(&image),
	)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("capture timed out after %s: %w", c.settleTimeout, context.DeadlineExceeded)
	}
	if err != nil {
		return fmt.Errorf("chrome capture: %w", err)
	}
	if len(image) == 0 {
		return errors.New("chrome returned an empty screenshot")
	}
	if err := os.WriteFile(imagePath, image, 0o644); err != nil {
		return fmt.Errorf("write screenshot %s: %w", imagePath, err)
	}
	return nil
}
