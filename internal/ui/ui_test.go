package ui

import (
	"bytes"
	"testing"
)

func TestWarn(t *testing.T) {
	SetColorEnabled(false)
	var buf bytes.Buffer
	SetWriter(&buf)
	defer SetWriter(nil)

	Warn("scope defaulted to owner")

	if got := buf.String(); got != "Warning: scope defaulted to owner\n" {
		t.Errorf("Warn output = %q", got)
	}
}

func TestError(t *testing.T) {
	SetColorEnabled(false)
	var buf bytes.Buffer
	SetWriter(&buf)
	defer SetWriter(nil)

	Error("something failed")

	if got := buf.String(); got != "Error: something failed\n" {
		t.Errorf("Error output = %q, want %q", got, "Error: something failed\n")
	}
}

func TestColors(t *testing.T) {
	SetColorEnabled(true)
	defer SetColorEnabled(false)

	if got := Bold("x"); got != "\033[1mx\033[0m" {
		t.Errorf("Bold = %q", got)
	}
	if got := OKTag(); got != "\033[32m✓\033[0m" {
		t.Errorf("OKTag = %q", got)
	}

	SetColorEnabled(false)
	if got := Dim("x"); got != "x" {
		t.Errorf("Dim without color = %q", got)
	}
}
