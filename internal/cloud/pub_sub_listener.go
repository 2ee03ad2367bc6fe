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

// Package cloud provides components for interacting with external services.
// This file defines a generic, reusable Pub/Sub message listener. It
// abstracts the mechanics of receiving messages from a subscription and
// delegates the processing of each message to a "Command".
//
// Logic Flow:
//  1. A PubSubListener is created with a client and a subscription ID.
//  2. A Command (the analysis workflow) is attached to the listener.
//  3. `Listen` starts a background goroutine that waits for messages.
//  4. Each message is handed to the Command inside a fresh chain context.
//  5. The message is Ack'd only when the Command completes without errors.
//     A failed message is neither Ack'd nor Nack'd, so it is redelivered
//     after its acknowledgement deadline per the subscription's retry
//     policy. This is what gives analysis jobs at-least-once processing.
//  6. Each message is traced with OpenTelemetry.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cliplens/video-analysis/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener connects a Pub/Sub subscription to a processing command.
// Listeners have a life-cycle independent of individual API requests, so
// they live with the other long-lived cloud components.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for the given subscription ID. The
// command may be nil at construction time and attached later with
// SetCommand, which is how the server wires listeners before the workflow
// chains are assembled.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)

	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches a command to the listener. The first command attached
// wins; later calls are ignored so the initial wiring is not overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts the asynchronous message receiving loop in a background
// goroutine. Cancelling the given context stops the loop, which is how
// graceful shutdown drains the listener.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening for analysis jobs", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))
			slog.Debug("received message", "bytes", len(msg.Data))

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for name, e := range chainCtx.GetErrors() {
					slog.Error("error executing chain", "command", name, "error", e)
				}
				// No Ack and no Nack: the message is redelivered after its
				// acknowledgement deadline expires.
			}

			span.End()
		})

		if err != nil {
			slog.Error("error receiving data", "error", err)
		}
	}()
}
