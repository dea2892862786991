package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandArgFiles(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "no at-files",
			args: []string{"--debug", "2", "a.wave"},
			want: []string{"--debug", "2", "a.wave"},
		},
		{
			name: "at-file becomes config-file",
			args: []string{"@mycfg", "a.wave"},
			want: []string{"--config-file=mycfg", "a.wave"},
		},
		{
			name: "multiple at-files keep order",
			args: []string{"@one", "@two"},
			want: []string{"--config-file=one", "--config-file=two"},
		},
		{
			name: "lone at is left alone",
			args: []string{"@"},
			want: []string{"@"},
		},
		{
			name: "tokens after separator are untouched",
			args: []string{"@one", "--", "@two"},
			want: []string{"--config-file=one", "--", "@two"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandArgFiles(tt.args))
		})
	}
}
