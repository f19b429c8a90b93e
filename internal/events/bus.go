// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package events provides the in-process Watermill event bus used for
// administrative triggers. The gochannel pub/sub keeps delivery inside the
// process; swapping in a broker-backed pub/sub only changes this package.
package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// NewBus creates the in-process pub/sub. The returned GoChannel is both a
// message.Publisher and a message.Subscriber; Close releases its
// subscriptions.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		// Buffer so a publish during a slow build does not block the
		// HTTP handler.
		OutputChannelBuffer: 16,
	}, NewWatermillLogger(logger))
}

// watermillLogger adapts zerolog to watermill.LoggerAdapter.
type watermillLogger struct {
	logger zerolog.Logger
}

// NewWatermillLogger wraps a zerolog logger for Watermill internals.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger.With().Str("component", "events").Logger()}
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.event(w.logger.Error().Err(err), msg, fields)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.event(w.logger.Info(), msg, fields)
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.event(w.logger.Debug(), msg, fields)
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.event(w.logger.Trace(), msg, fields)
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	child := w.logger.With()
	for k, v := range fields {
		child = child.Interface(k, v)
	}
	return &watermillLogger{logger: child.Logger()}
}

func (w *watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
