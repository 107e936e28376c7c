package claude

import (
	"slices"
	"testing"
)

func TestHasFlag(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		names []string
		want  bool
	}{
		{"bare long", []string{"--print"}, []string{"--print"}, true},
		{"equals form", []string{"--output-format=json"}, []string{"--output-format"}, true},
		{"short", []string{"-p"}, []string{"-p", "--print"}, true},
		{"short has no equals form", []string{"-p=x"}, []string{"-p"}, false},
		{"absent", []string{"--model", "opus"}, []string{"--print"}, false},
		{"hidden as value", []string{"--system-prompt", "--print"}, []string{"--print"}, false},
		{"after separator", []string{"--", "--print"}, []string{"--print"}, false},
		{"after value", []string{"--model", "opus", "--print"}, []string{"--print"}, true},
		{"prefix is not a match", []string{"--printer"}, []string{"--print"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasFlag(tt.args, tt.names...); got != tt.want {
				t.Errorf("HasFlag(%q, %q) = %v, want %v", tt.args, tt.names, got, tt.want)
			}
		})
	}
}

func TestTakesValue(t *testing.T) {
	for arg, want := range map[string]bool{
		"--model":        true,
		"--model=opus":   false,
		"-r":             true,
		"--verbose":      false,
		"--print":        false,
		"--allowedTools": true,
	} {
		if got := TakesValue(arg); got != want {
			t.Errorf("TakesValue(%q) = %v, want %v", arg, got, want)
		}
	}
}

func TestHasSlashCommand(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		{"", false},
		{"fix the bug", false},
		{"/review", true},
		{"  /compact", true},
		{"first line\n/clear\nthird", true},
		{"paths like src/main.go are fine", false},
	}
	for _, tt := range tests {
		if got := HasSlashCommand(tt.prompt); got != tt.want {
			t.Errorf("HasSlashCommand(%q) = %v, want %v", tt.prompt, got, tt.want)
		}
	}
}

func TestEnvOverrides_Apply(t *testing.T) {
	base := []string{"PATH=/bin", "CLAUDECODE=1", "HOME=/home/u", "FOO=old"}

	tests := []struct {
		name string
		o    EnvOverrides
		want []string
	}{
		{"zero", EnvOverrides{}, base},
		{"unset", EnvOverrides{Unset: []string{"CLAUDECODE"}}, []string{"PATH=/bin", "HOME=/home/u", "FOO=old"}},
		{
			"set replaces and appends sorted",
			EnvOverrides{Set: map[string]string{"ZED": "z", "FOO": "new"}},
			[]string{"PATH=/bin", "CLAUDECODE=1", "HOME=/home/u", "FOO=new", "ZED=z"},
		},
		{"unset missing key", EnvOverrides{Unset: []string{"NOPE"}}, base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.o.Apply(base)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}

	if !(EnvOverrides{}).IsZero() {
		t.Error("empty overrides should be zero")
	}
	if (EnvOverrides{Unset: []string{"X"}}).IsZero() {
		t.Error("overrides with unset should not be zero")
	}
}

func TestEnvOverrides_ApplyDoesNotMutateBase(t *testing.T) {
	base := []string{"A=1", "B=2"}
	_ = EnvOverrides{Unset: []string{"A"}}.Apply(base)
	if !slices.Equal(base, []string{"A=1", "B=2"}) {
		t.Errorf("base mutated: %q", base)
	}
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"", "headless", "INTERACTIVE", " background ", "auto"} {
		if _, err := ParseMode(in); err != nil {
			t.Errorf("ParseMode(%q) unexpected error: %v", in, err)
		}
	}
	if _, err := ParseMode("tmux"); err == nil {
		t.Error("ParseMode(tmux) should fail")
	}
}
