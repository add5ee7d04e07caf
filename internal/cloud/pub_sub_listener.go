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

package cloud

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener feeds messages from one subscription into a cor.Command.
//
// Logic Flow:
//  1. Listen starts a goroutine that blocks in subscription.Receive.
//  2. Each message becomes the CtxIn of a fresh cor.Context.
//  3. The attached command runs against that context.
//  4. The message is acked when the command recorded no error, or when the
//     error wraps ErrMalformedMessage since redelivery cannot fix it. Any other
//     failure is nacked so Pub/Sub redelivers it per the subscription policy.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription messages are pulled from.
	command      cor.Command          // Runs once per received message.
}

// ErrMalformedMessage marks a message payload that can never be processed.
var ErrMalformedMessage = errors.New("malformed message")

// shouldAck reports whether a message whose processing ended with err must be
// removed from the subscription.
func shouldAck(err error) bool {
	return err == nil || errors.Is(err, ErrMalformedMessage)
}

func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches the processing command once; later calls are ignored.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen receives messages in the background until ctx is cancelled.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(msgCtx, "receive-message")
			defer span.End()
			span.SetAttributes(
				attribute.String("message.id", msg.ID),
				attribute.Int("message.size", len(msg.Data)),
			)
			slog.InfoContext(spanCtx, "received message", "id", msg.ID)

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			if m.command == nil || !m.command.IsExecutable(chainCtx) {
				span.SetStatus(codes.Error, "no executable command")
				slog.ErrorContext(spanCtx, "no executable command attached", "id", msg.ID)
				msg.Nack()
				return
			}
			m.command.Execute(chainCtx)

			err := chainCtx.Err()
			switch {
			case err == nil:
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			case shouldAck(err):
				span.SetStatus(codes.Error, "malformed message")
				slog.ErrorContext(spanCtx, "dropping malformed message", "id", msg.ID, "error", err)
				msg.Ack()
			default:
				span.SetStatus(codes.Error, "failed")
				slog.ErrorContext(spanCtx, "error executing chain", "id", msg.ID, "error", err)
				msg.Nack()
			}
		})

		if err != nil {
			slog.Error("error receiving data", "subscription", m.subscription.String(), "error", err)
		}
	}()
}
