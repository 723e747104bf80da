// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/jeranaias/ollamacode/internal/ui/styles"
	"github.com/jeranaias/ollamacode/internal/util"
)

// ResponseInfo describes the last response: start, end, duration and length.
type ResponseInfo struct {
	Start     time.Time
	End       time.Time
	Length    int
	Cancelled bool
	// TokensPerSecond is 0 when the server did not report it.
	TokensPerSecond float64
}

// Duration returns End - Start, or the time since Start while running.
func (r ResponseInfo) Duration(now time.Time) time.Duration {
	if r.Start.IsZero() {
		return 0
	}
	if r.End.IsZero() {
		return now.Sub(r.Start)
	}
	return r.End.Sub(r.Start)
}

// InfoBar renders ResponseInfo on one line.
type InfoBar struct {
	Info  ResponseInfo
	Width int
	theme *styles.Theme
}

// NewInfoBar creates an info bar.
func NewInfoBar(theme *styles.Theme) *InfoBar {
	return &InfoBar{Width: 80, theme: theme}
}

// View renders the bar, or "" before the first response.
func (b *InfoBar) View(now time.Time) string {
	if b.Info.Start.IsZero() {
		return ""
	}
	t := b.theme

	field := func(label, value string) string {
		return t.InfoLabel.Render(label+" ") + t.InfoValue.Render(value)
	}

	parts := []string{
		field("Start", util.FormatTimestamp(b.Info.Start)),
		field("End", util.FormatTimestamp(b.Info.End)),
		field("Duration", util.FormatDuration(b.Info.Duration(now))),
		field("Length", util.FormatCount(b.Info.Length)+" chars"),
	}
	if rate := util.FormatRate(b.Info.TokensPerSecond); rate != "" {
		parts = append(parts, t.Muted.Render(rate))
	}
	if b.Info.Cancelled {
		parts = append(parts, t.Warning.Render(styles.StatusIndicators.Warning+" cancelled"))
	}

	line := strings.Join(parts, t.Muted.Render("  "))
	return t.InfoBar.MaxWidth(b.Width).Render(line)
}
