// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/ui/components"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// REPLY OUTPUT
// =============================================================================

// printer writes agent replies in line mode. Terminals get the styled
// transcript with markdown; pipes get plain "Speaker:" blocks.
type printer struct {
	out        io.Writer
	dir        *mention.Directory
	transcript *components.Transcript
	theme      *styles.Theme
}

func newPrinter(out io.Writer, cfg *config.Config, dir *mention.Directory) *printer {
	p := &printer{out: out, dir: dir}
	if !colorEnabled(out) {
		return p
	}
	theme, err := styles.NewTheme(cfg.UI.Theme)
	if err != nil {
		return p
	}
	width := terminalWidth(out)
	md := components.NewMarkdown(width-4, theme.IsDark, cfg.UI.RenderMarkdown)
	p.theme = theme
	p.transcript = components.NewTranscript(theme, md, dir)
	p.transcript.SetWidth(width)
	return p
}

func (p *printer) styled() bool {
	return p.transcript != nil
}

// reply prints an AI message.
func (p *printer) reply(msg *model.Message) {
	if p.styled() {
		fmt.Fprintln(p.out, p.transcript.RenderMessage(msg))
		return
	}
	fmt.Fprintf(p.out, "%s:\n%s\n", components.Speaker(msg, p.dir), strings.TrimSpace(msg.Content))
}

// suggestions prints the server's follow-up prompts, if any.
func (p *printer) suggestions(list []string) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Suggested follow-ups:")
	for i, s := range list {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, s)
	}
}

// errorf prints a one-line error in the theme's error style.
func (p *printer) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.styled() {
		fmt.Fprintln(p.out, p.theme.RenderError(msg))
		return
	}
	fmt.Fprintln(p.out, "Error: "+msg)
}

// describeError turns agent errors into actionable messages.
func describeError(err error, cfg *config.Config) string {
	switch {
	case errors.Is(err, agent.ErrAuthFailed):
		return "authentication failed; check server.api_key"
	case errors.Is(err, agent.ErrUnavailable):
		return "agent server unreachable at " + cfg.Server.APIURL
	case errors.Is(err, agent.ErrRateLimited):
		return "rate limited by the agent server; try again shortly"
	}
	return err.Error()
}
