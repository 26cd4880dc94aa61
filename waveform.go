package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const waveWidth = 48

// waveGain lifts normal speech levels into the visible range; RMS of
// conversational speech rarely gets above 0.25.
const waveGain = 4.0

var waveChars = []rune("▁▂▃▄▅▆▇█")

var (
	waveStyleRec = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	waveStyleDim = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// waveform keeps a ring of recent smoothed input levels and paints
// them as a block-character strip scrolling right to left. Purely
// cosmetic: it never touches the recording path, and with no samples
// it renders a flat line.
type waveform struct {
	levels [waveWidth]float64
	pos    int
	smooth float64
}

func (w *waveform) Push(level float64) {
	w.smooth = w.smooth*0.6 + level*0.4
	w.levels[w.pos] = w.smooth
	w.pos = (w.pos + 1) % waveWidth
}

func (w *waveform) Reset() {
	*w = waveform{}
}

func (w *waveform) Render(dimmed bool) string {
	var b strings.Builder
	for i := 0; i < waveWidth; i++ {
		l := w.levels[(w.pos+i)%waveWidth] * waveGain
		idx := int(l * float64(len(waveChars)-1))
		if idx >= len(waveChars) {
			idx = len(waveChars) - 1
		}
		b.WriteRune(waveChars[idx])
	}
	if dimmed {
		return waveStyleDim.Render(b.String())
	}
	return waveStyleRec.Render(b.String())
}
