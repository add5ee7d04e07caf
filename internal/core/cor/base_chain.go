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

package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs an ordered list of commands against one Context.
//
// Logic Flow:
//  1. Open a span for the chain and a child span per command.
//  2. Before each command, stop if an error is already recorded (unless
//     continueOnFailure is set).
//  3. Run the command when its IsExecutable precondition holds; otherwise
//     mark its span as skipped.
//  4. Move CtxOut into CtxIn so the next command receives the output. A
//     skipped command leaves CtxIn untouched.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool      // Keep running after a command records an error.
	commands          []Command // Commands in execution order.
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// Commands returns the names of the chained commands in execution order.
func (c *BaseChain) Commands() []string {
	out := make([]string, 0, len(c.commands))
	for _, command := range c.commands {
		out = append(out, command.GetName())
	}
	return out
}

// IsExecutable only requires a Go context; each command checks its own inputs.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			// Sibling spans, not nested ones.
			chCtx.SetContext(outerCtx)
			if chCtx.HasErrors() {
				commandSpan.SetStatus(codes.Error, "error during or after command execution")
			} else {
				commandSpan.SetStatus(codes.Ok, "command completed successfully")
			}
			c.pipe(chCtx)
		} else {
			commandSpan.SetStatus(codes.Unset, fmt.Sprintf("command not executable: %s", command.GetName()))
		}
		commandSpan.End()
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	}
}

func (c *BaseChain) pipe(chCtx Context) {
	outputValue := chCtx.Get(CtxOut)
	chCtx.Remove(CtxIn)
	if outputValue != nil {
		chCtx.Add(CtxIn, outputValue)
	}
	chCtx.Remove(CtxOut)
}
