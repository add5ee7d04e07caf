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

package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendCommand appends its suffix to the string input and optionally fails.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	err    error
	ran    *[]string
}

func newAppendCommand(name string, suffix string, err error, ran *[]string) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix, err: err, ran: ran}
}

func (a *appendCommand) Execute(context cor.Context) {
	*a.ran = append(*a.ran, a.GetName())
	if a.err != nil {
		a.Fail(context, a.err)
		return
	}
	in := context.Get(a.GetInputParam()).(string)
	context.Add(a.GetOutputParam(), in+a.suffix)
	a.Succeed(context)
}

func newContext(in string) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, in)
	return chCtx
}

func TestChainPipesOutputToNextInput(t *testing.T) {
	var ran []string
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newAppendCommand("a", "-a", nil, &ran))
	chain.AddCommand(newAppendCommand("b", "-b", nil, &ran))

	chCtx := newContext("start")
	chain.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, "start-a-b", chCtx.Get(cor.CtxIn))
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, []string{"a", "b"}, chain.Commands())
}

func TestChainStopsAtFirstError(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(newAppendCommand("a", "-a", nil, &ran))
	chain.AddCommand(newAppendCommand("b", "", boom, &ran))
	chain.AddCommand(newAppendCommand("c", "-c", nil, &ran))

	chCtx := newContext("start")
	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.ErrorIs(t, chCtx.Err(), boom)
}

func TestChainContinueOnFailure(t *testing.T) {
	var ran []string
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newAppendCommand("a", "", errors.New("first"), &ran))
	chain.AddCommand(newAppendCommand("b", "", errors.New("second"), &ran))

	chCtx := newContext("start")
	chain.Execute(chCtx)

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Len(t, chCtx.GetErrors(), 2)
	assert.EqualError(t, chCtx.Err(), "first\nsecond")
}

func TestSkippedCommandKeepsInput(t *testing.T) {
	var ran []string
	skipped := newAppendCommand("skipped", "-x", nil, &ran)
	skipped.InputParamName = "__MISSING__"

	chain := cor.NewBaseChain("skip")
	chain.AddCommand(skipped)
	chain.AddCommand(newAppendCommand("b", "-b", nil, &ran))

	chCtx := newContext("start")
	chain.Execute(chCtx)

	assert.Equal(t, []string{"b"}, ran)
	assert.Equal(t, "start-b", chCtx.Get(cor.CtxIn))
}

func TestChainRequiresGoContext(t *testing.T) {
	chain := cor.NewBaseChain("no-context")
	assert.False(t, chain.IsExecutable(cor.NewBaseContext()))
}

func TestAddErrorJoinsSameKey(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	chCtx := cor.NewBaseContext()
	chCtx.AddError("cmd", first)
	chCtx.AddError("cmd", second)
	chCtx.AddError("cmd", nil)

	assert.Len(t, chCtx.GetErrors(), 1)
	assert.ErrorIs(t, chCtx.Err(), first)
	assert.ErrorIs(t, chCtx.Err(), second)
}

func TestCloseRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.txt")
	transient := filepath.Join(dir, "transient.txt")
	gone := filepath.Join(dir, "never-created.txt")
	require.NoError(t, os.WriteFile(kept, []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(transient, []byte("t"), 0o644))

	chCtx := cor.NewBaseContext()
	chCtx.AddTempFile(transient)
	chCtx.AddTempFile(transient)
	chCtx.AddTempFile(gone)
	assert.Len(t, chCtx.GetTempFiles(), 2)

	chCtx.Close()
	chCtx.Close()

	assert.FileExists(t, kept)
	assert.NoFileExists(t, transient)
	assert.Empty(t, chCtx.GetTempFiles())
}
