// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the client for the aostock agent server, which speaks the
// LangGraph server API.
//
// Every request carries the client's settings in an X-Settings header
// (base64 of the settings JSON) so the server-side agents pick up the
// configured models and data service. Requests share a token-bucket limiter.
//
// # Usage
//
//	c := agent.New(cfg, agent.WithLogger(log))
//	th, err := c.CreateThread(ctx)
//	events, err := c.StreamRun(ctx, th.ThreadID, agent.RunInput{Messages: msgs})
//	for ev := range events {
//	    if ev.Err != nil { ... }
//	    conv.Replace(ev.State.Messages)
//	}
package agent
