package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	render := NewRenderer(40)
	out, err := render("# Hello\n\nJohn **Doe**")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Doe")
}

func TestPlain(t *testing.T) {
	out, err := Plain("**x**")
	require.NoError(t, err)
	assert.Equal(t, "**x**", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Equal(t, len(bannerLines)+2, strings.Count(buf.String(), "\n"))
	assert.NotEmpty(t, Faint(&buf, "hint"))
}
