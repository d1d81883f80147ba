package ux

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plan struct {
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
}

type textPlan struct{ plan }

func (p textPlan) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, "plan "+p.Name+"\n")
	return err
}

func TestNewFormatter(t *testing.T) {
	for _, f := range append(Formats, "") {
		_, err := NewFormatter(f, nil)
		assert.NoError(t, err, f)
	}
	_, err := NewFormatter("xml", nil)
	assert.ErrorContains(t, err, "unknown format")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(plan{Name: "basic", Active: true}))
	assert.Contains(t, buf.String(), `"name": "basic"`)
	assert.Contains(t, buf.String(), `"active": true`)
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, err)

	require.NoError(t, f.Format(plan{Name: "basic"}))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(plan{Name: "premium"}))
	assert.Contains(t, buf.String(), "name: premium")
	assert.Contains(t, buf.String(), "active: false")
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    string
		wantErr bool
	}{
		{name: "string", data: "hello", want: "hello\n"},
		{name: "texter", data: textPlan{plan{Name: "free"}}, want: "plan free\n"},
		{name: "struct without text form", data: plan{Name: "free"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
			require.NoError(t, err)

			err = f.Format(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []string{"ID", "TITLE"}, [][]string{{"j1", "Go Developer"}}, "no jobs"))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Go Developer")

	buf.Reset()
	require.NoError(t, Table(&buf, []string{"ID"}, nil, "no jobs"))
	assert.Equal(t, "no jobs\n", buf.String())
}
