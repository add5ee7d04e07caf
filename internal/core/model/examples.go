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

// GetExampleContent returns a small, well-formed course payload. It is embedded
// in the course generation prompt as a few-shot example of the JSON the model
// must return, so its shape has to stay in sync with ContentPayload.
func GetExampleContent() *ContentPayload {
	return &ContentPayload{
		Topic: "Go concurrency",
		Level: DefaultLevel,
		Axes:  []string{"introduction", "examples"},
		Slides: []Slide{
			{
				ID:      1,
				Title:   "Goroutines",
				Summary: "<ul><li>A goroutine is a function running concurrently.</li><li>Start one with the <code>go</code> keyword.</li></ul>",
				ExampleCode: `<pre><code class="language-go">go func() {
    fmt.Println("hello from a goroutine")
}()</code></pre>`,
			},
			{
				ID:      2,
				Title:   "Channels",
				Summary: "<ul><li>Channels connect goroutines.</li><li>Sends block until a receiver is ready.</li></ul>",
				ExampleCode: `<pre><code class="language-go">ch := make(chan int)
go func() { ch <- 42 }()
fmt.Println(<-ch)</code></pre>`,
			},
		},
		Speech: SpeechList{
			{
				ID:              1,
				Script:          "Goroutines let a Go program do several things at once.",
				CodeExplanation: "Here an anonymous function is started with the go keyword and prints a message.",
			},
			{
				ID:              2,
				Script:          "Channels are how goroutines talk to each other.",
				CodeExplanation: "The goroutine sends forty two on the channel and the main goroutine receives it.",
			},
		},
	}
}
