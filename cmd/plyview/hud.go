package main

import (
	"fmt"
	"strings"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/dustin/go-humanize"
	"github.com/taigrr/plyview/pkg/viewer"
)

const (
	reset    = "\x1b[0m"
	bold     = "\x1b[1m"
	bgBlack  = "\x1b[40m"
	fgWhite  = "\x1b[97m"
	fgGreen  = "\x1b[92m"
	fgYellow = "\x1b[93m"
)

// messageTTL is how long a flashed message stays on screen.
const messageTTL = 3 * time.Second

// HUD renders an overlay with model info and the interaction state.
type HUD struct {
	Visible   bool
	fps       float64
	fpsFrames int
	fpsTime   time.Time

	message      string
	messageUntil time.Time
	now          func() time.Time
}

// NewHUD creates a visible HUD.
func NewHUD() *HUD {
	return &HUD{Visible: true, fpsTime: time.Now(), now: time.Now}
}

// Flash shows msg on the bottom row for a few seconds, even when the HUD
// is hidden.
func (h *HUD) Flash(msg string) {
	h.message = msg
	h.messageUntil = h.now().Add(messageTTL)
}

// Message returns the flashed message, or "" once it has expired.
func (h *HUD) Message() string {
	if h.message == "" || !h.now().Before(h.messageUntil) {
		h.message = ""
		return ""
	}
	return h.message
}

// UpdateFPS updates the FPS counter (call once per frame).
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// TopLine returns the plain text of the top row.
func (h *HUD) TopLine(s *viewer.Session) string {
	if s == nil {
		return fmt.Sprintf(" %.0f FPS ", h.fps)
	}
	name := s.Model.Name
	if name == "" {
		name = s.Model.ID
	}
	points := "loading…"
	if !s.Loading() {
		points = humanize.Comma(int64(s.Points)) + " pts"
	}
	return fmt.Sprintf(" %.0f FPS │ %s │ %s ", h.fps, name, points)
}

// BottomLine returns the plain text of the bottom row.
func (h *HUD) BottomLine(s *viewer.Session) string {
	if msg := h.Message(); msg != "" {
		return " " + msg + " "
	}
	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(s.State().String())
	if s != nil && s.Fallback {
		b.WriteString(" │ generated points (model unavailable)")
	}
	if s != nil && s.Zoom() != 1 {
		fmt.Fprintf(&b, " │ zoom %.2fx", s.Zoom())
	}
	b.WriteString(" │ drag: rotate  r: reset  +/-: zoom  s: snapshot  ?: hud  esc: quit ")
	return b.String()
}

// Draw paints the HUD rows over area.
func (h *HUD) Draw(scr uv.Screen, area uv.Rectangle, s *viewer.Session) {
	if area.Dy() < 1 {
		return
	}
	bottom := uv.Rect(area.Min.X, area.Max.Y-1, area.Dx(), 1)
	switch {
	case h.Message() != "":
		uv.NewStyledString(bgBlack + bold + fgYellow + h.BottomLine(s) + reset).Draw(scr, bottom)
	case h.Visible:
		color := fgWhite
		if s != nil && s.Fallback {
			color = fgYellow
		}
		uv.NewStyledString(bgBlack + color + h.BottomLine(s) + reset).Draw(scr, bottom)
	}

	if !h.Visible || area.Dy() < 2 {
		return
	}
	top := uv.Rect(area.Min.X, area.Min.Y, area.Dx(), 1)
	uv.NewStyledString(bgBlack + fgGreen + bold + h.TopLine(s) + reset).Draw(scr, top)
}
