package main

import (
	"encoding/binary"
	"strings"
	"testing"
)

func TestWaveformFlatWithoutSamples(t *testing.T) {
	var w waveform
	out := w.Render(false)
	if strings.ContainsAny(out, "▂▃▄▅▆▇█") {
		t.Errorf("empty waveform should be a flat line, got %q", out)
	}
}

func TestWaveformRisesWithLevel(t *testing.T) {
	var w waveform
	for i := 0; i < waveWidth; i++ {
		w.Push(0.5)
	}
	out := w.Render(false)
	if !strings.ContainsAny(out, "▅▆▇█") {
		t.Errorf("loud input should raise the waveform, got %q", out)
	}

	w.Reset()
	if strings.ContainsAny(w.Render(false), "▂▃▄▅▆▇█") {
		t.Error("reset should flatten the waveform")
	}
}

func TestEncodePCMWav(t *testing.T) {
	pcm := make([]byte, 8192)
	for i := 0; i+1 < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(1000)))
	}

	data, filename, err := encodePCM(pcm, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if filename != "recording.wav" {
		t.Errorf("filename = %q", filename)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE header")
	}
	if len(data) != 44+len(pcm) {
		t.Errorf("len = %d, want %d", len(data), 44+len(pcm))
	}
}

func TestEncodePCMFlac(t *testing.T) {
	pcm := make([]byte, 8192)

	data, filename, err := encodePCM(pcm, "flac")
	if err != nil {
		t.Fatal(err)
	}
	if filename != "recording.flac" {
		t.Errorf("filename = %q", filename)
	}
	if string(data[:4]) != "fLaC" {
		t.Error("missing fLaC magic")
	}
}
