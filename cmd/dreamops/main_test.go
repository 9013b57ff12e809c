package main

import (
	"context"
	"testing"
)

func TestRunUsageExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no args", args: nil, want: 2},
		{name: "unknown command", args: []string{"frobnicate"}, want: 2},
		{name: "top-level help", args: []string{"help"}, want: 0},
		// A help request must not read as a DEAD verdict.
		{name: "healthcheck help", args: []string{"healthcheck", "-h"}, want: 2},
		{name: "healthcheck missing service", args: []string{"healthcheck"}, want: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := run(context.Background(), tt.args); got != tt.want {
				t.Fatalf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
