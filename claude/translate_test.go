package claude

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

const testBinary = "/usr/local/bin/claude"

func baseRequest() InvocationRequest {
	return InvocationRequest{
		Prompt: "summarize the repo",
		Binary: testBinary,
	}
}

func TestTranslate_Modes(t *testing.T) {
	tests := []struct {
		name       string
		mode       Mode
		background bool
		prompt     string
		want       Mode
	}{
		{"default is headless", "", false, "hi", ModeHeadless},
		{"explicit headless", ModeHeadless, false, "hi", ModeHeadless},
		{"explicit interactive", ModeInteractive, false, "hi", ModeInteractive},
		{"explicit background", ModeBackground, false, "hi", ModeBackground},
		{"background flag", "", true, "hi", ModeBackground},
		{"background flag with headless", ModeHeadless, true, "hi", ModeBackground},
		{"auto plain prompt", ModeAuto, false, "fix the tests", ModeHeadless},
		{"auto slash prompt", ModeAuto, false, "/review", ModeInteractive},
		{"auto slash on later line", ModeAuto, false, "look at this\n  /compact", ModeInteractive},
		{"auto with background flag", ModeAuto, true, "/review", ModeBackground},
		{"mode is case insensitive", Mode("Headless"), false, "hi", ModeHeadless},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			req.Mode = tt.mode
			req.Background = tt.background
			req.Prompt = tt.prompt

			plan, err := Translate(req, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Mode() != tt.want {
				t.Errorf("Mode() = %q, want %q", plan.Mode(), tt.want)
			}
		})
	}
}

func TestTranslate_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*InvocationRequest)
	}{
		{"unknown mode", func(r *InvocationRequest) { r.Mode = "turbo" }},
		{"background with interactive", func(r *InvocationRequest) {
			r.Mode = ModeInteractive
			r.Background = true
		}},
		{"empty prompt", func(r *InvocationRequest) { r.Prompt = "" }},
		{"whitespace prompt", func(r *InvocationRequest) { r.Prompt = "  \n" }},
		{"no binary", func(r *InvocationRequest) { r.Binary = "" }},
		{"session name with colon", func(r *InvocationRequest) {
			r.Mode = ModeInteractive
			r.SessionName = "a:b"
		}},
		{"session name with dot", func(r *InvocationRequest) {
			r.Mode = ModeInteractive
			r.SessionName = "a.b"
		}},
		{"blank session name", func(r *InvocationRequest) {
			r.Mode = ModeInteractive
			r.SessionName = "   "
		}},
		{"value flag hides print", func(r *InvocationRequest) {
			r.Prompt = ""
			r.RawArgs = []string{"--append-system-prompt", "--print"}
		}},
		{"print after separator", func(r *InvocationRequest) {
			r.Prompt = ""
			r.RawArgs = []string{"--", "--print"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.modify(&req)

			_, err := Translate(req, nil)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestTranslate_PromptEquivalents(t *testing.T) {
	for _, raw := range [][]string{
		{"--print"},
		{"-p"},
		{"--continue"},
		{"-c"},
		{"--resume", "abc"},
		{"--resume=abc"},
		{"-r", "abc"},
		{"--print=true"},
	} {
		t.Run(strings.Join(raw, " "), func(t *testing.T) {
			req := baseRequest()
			req.Prompt = ""
			req.RawArgs = raw
			if _, err := Translate(req, nil); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTranslate_HeadlessArgs(t *testing.T) {
	tests := []struct {
		name         string
		prompt       string
		raw          []string
		outputFormat string
		want         []string
	}{
		{
			name:   "prompt only",
			prompt: "hello",
			want:   []string{"-p", "hello"},
		},
		{
			name:   "raw args follow managed flags",
			prompt: "hello",
			raw:    []string{"--model", "opus", "--verbose"},
			want:   []string{"-p", "hello", "--model", "opus", "--verbose"},
		},
		{
			name:         "output format added",
			prompt:       "hello",
			outputFormat: "json",
			want:         []string{"-p", "hello", "--output-format", "json"},
		},
		{
			name:         "caller output format wins",
			prompt:       "hello",
			raw:          []string{"--output-format=stream-json"},
			outputFormat: "json",
			want:         []string{"-p", "hello", "--output-format=stream-json"},
		},
		{
			name:   "caller print flag not duplicated",
			prompt: "hello",
			raw:    []string{"--print", "--model", "opus"},
			want:   []string{"hello", "--print", "--model", "opus"},
		},
		{
			name: "continue without prompt",
			raw:  []string{"--continue"},
			want: []string{"-p", "--continue"},
		},
		{
			name:   "prompt with spaces stays one argument",
			prompt: "fix the 'flaky' test",
			want:   []string{"-p", "fix the 'flaky' test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			req.Prompt = tt.prompt
			req.RawArgs = tt.raw
			req.OutputFormat = tt.outputFormat

			plan, err := Translate(req, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := plan.Args(); !slices.Equal(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslate_InteractiveArgs(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		raw    []string
		want   []string
	}{
		{"prompt last", "/review", []string{"--model", "opus"}, []string{"--model", "opus", "/review"}},
		{"no output format", "hi", nil, []string{"hi"}},
		{"dash prompt guarded", "-weird", nil, []string{"--", "-weird"}},
		{"continue only", "", []string{"--continue"}, []string{"--continue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			req.Mode = ModeInteractive
			req.Prompt = tt.prompt
			req.RawArgs = tt.raw
			req.OutputFormat = "json"

			plan, err := Translate(req, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := plan.Args(); !slices.Equal(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Every raw argument must reach claude unmodified and in its original order.
func TestTranslate_RawArgsPreserved(t *testing.T) {
	raws := [][]string{
		{"--model", "opus"},
		{"--allowedTools", "Bash,Read", "--permission-mode", "plan", "--verbose"},
		{"--json-schema", `{"type":"object"}`, "--append-system-prompt", "be brief"},
		{"-p", "--max-turns", "3"},
		{"--", "--not-a-flag", "x"},
		{"--weird=1", "--weird=1", "--dup"},
	}
	for _, mode := range []Mode{ModeHeadless, ModeBackground, ModeInteractive} {
		for _, raw := range raws {
			t.Run(string(mode)+" "+strings.Join(raw, " "), func(t *testing.T) {
				req := baseRequest()
				req.Mode = mode
				req.RawArgs = slices.Clone(raw)
				req.OutputFormat = "json"

				plan, err := Translate(req, nil)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !containsRun(plan.Args(), raw) {
					t.Errorf("Args() = %q does not contain %q in order", plan.Args(), raw)
				}
				if !slices.Equal(req.RawArgs, raw) {
					t.Errorf("request args were mutated: %q", req.RawArgs)
				}
			})
		}
	}
}

func containsRun(haystack, needle []string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func TestTranslate_NestingGuard(t *testing.T) {
	tests := []struct {
		name      string
		env       Environment
		wantUnset []string
	}{
		{"inside claude session", Environment{"CLAUDECODE": "1"}, []string{"CLAUDECODE"}},
		{"empty value ignored", Environment{"CLAUDECODE": ""}, nil},
		{"absent", Environment{"PATH": "/bin"}, nil},
		{"nil env", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Translate(baseRequest(), tt.env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := plan.Env().Unset; !slices.Equal(got, tt.wantUnset) {
				t.Errorf("Env().Unset = %q, want %q", got, tt.wantUnset)
			}
		})
	}
}

func TestTranslate_ModeSpecificFields(t *testing.T) {
	req := baseRequest()
	req.LogDir = "/tmp/logs"
	req.Notify = true
	req.SessionName = "mine"
	req.WorkDir = "/repo"

	plan, err := Translate(req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.LogDir() != "/tmp/logs" || !plan.Notify() {
		t.Errorf("headless plan should keep log dir and notify: %q %v", plan.LogDir(), plan.Notify())
	}
	if plan.SessionName() != "" {
		t.Errorf("headless plan should have no session, got %q", plan.SessionName())
	}
	if plan.WorkDir() != "/repo" {
		t.Errorf("WorkDir() = %q", plan.WorkDir())
	}

	req.Mode = ModeInteractive
	plan, err = Translate(req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.SessionName() != "mine" {
		t.Errorf("SessionName() = %q, want mine", plan.SessionName())
	}
	if plan.LogDir() != "" || plan.Notify() {
		t.Error("interactive plan should carry no log dir or notification")
	}
}

func TestTranslate_GeneratedSessionName(t *testing.T) {
	req := baseRequest()
	req.Mode = ModeInteractive
	req.SessionPrefix = "work"

	plan, err := Translate(req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^work-[0-9a-f]{8}$`).MatchString(plan.SessionName()) {
		t.Errorf("unexpected generated name %q", plan.SessionName())
	}
}

func TestNewSessionName_UniqueUnderConcurrency(t *testing.T) {
	const n = 500
	names := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- NewSessionName("")
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool, n)
	for name := range names {
		if name == "" {
			t.Fatal("generated an empty session name")
		}
		if err := ValidateSessionName(name); err != nil {
			t.Fatalf("generated invalid name %q: %v", name, err)
		}
		if seen[name] {
			t.Fatalf("duplicate session name %q", name)
		}
		seen[name] = true
	}
}

func TestLaunchPlan_AccessorsReturnCopies(t *testing.T) {
	plan, err := Translate(baseRequest(), Environment{"CLAUDECODE": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := plan.Args()
	args[0] = "mutated"
	env := plan.Env()
	env.Unset[0] = "MUTATED"
	argv := plan.Argv()
	argv[1] = "mutated"

	if plan.Args()[0] != "-p" {
		t.Error("Args() should return a copy")
	}
	if plan.Env().Unset[0] != "CLAUDECODE" {
		t.Error("Env() should return a copy")
	}
	if plan.Argv()[0] != testBinary {
		t.Errorf("Argv()[0] = %q, want binary", plan.Argv()[0])
	}
}

func TestLaunchPlan_JSONRoundTrip(t *testing.T) {
	req := baseRequest()
	req.Mode = ModeBackground
	req.RawArgs = []string{"--model", "opus"}
	req.LogDir = "/tmp/runs"
	req.Notify = true
	req.WorkDir = "/repo"
	req.TrustWait = 3 * time.Second

	plan, err := Translate(req, Environment{"CLAUDECODE": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := plan.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var decoded LaunchPlan
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}

	if decoded.Mode() != ModeBackground || decoded.LogDir() != "/tmp/runs" || !decoded.Notify() ||
		decoded.WorkDir() != "/repo" || decoded.TrustWait() != 3*time.Second {
		t.Errorf("decoded plan lost fields: %+v", decoded)
	}
	if !slices.Equal(decoded.Argv(), plan.Argv()) {
		t.Errorf("Argv() = %q, want %q", decoded.Argv(), plan.Argv())
	}
	if !slices.Equal(decoded.Env().Unset, []string{"CLAUDECODE"}) {
		t.Errorf("Env().Unset = %q", decoded.Env().Unset)
	}
}

func TestLaunchPlan_UnmarshalRejectsIncompletePlans(t *testing.T) {
	for _, data := range []string{
		`{"mode":"auto","binary":"claude"}`,
		`{"mode":"headless"}`,
		`not json`,
	} {
		var p LaunchPlan
		if err := p.UnmarshalJSON([]byte(data)); err == nil {
			t.Errorf("expected error for %s", data)
		}
	}
}

func TestShellCommand(t *testing.T) {
	tests := []struct {
		name string
		req  InvocationRequest
		env  Environment
		want string
	}{
		{
			name: "plain",
			req:  InvocationRequest{Mode: ModeInteractive, Prompt: "hi", Binary: "claude"},
			want: "claude hi",
		},
		{
			name: "workdir and nesting guard",
			req: InvocationRequest{
				Mode:    ModeInteractive,
				Prompt:  "fix it's bug",
				Binary:  "/opt/claude",
				WorkDir: "/my repo",
				RawArgs: []string{"--model", "opus"},
			},
			env:  Environment{"CLAUDECODE": "1"},
			want: `cd '/my repo' && env -u CLAUDECODE /opt/claude --model opus 'fix it'\''s bug'`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Translate(tt.req, tt.env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := ShellCommand(plan); got != tt.want {
				t.Errorf("ShellCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	env := ParseEnvironment([]string{"A=1", "B=x=y", "BROKEN", "=novalue", "A=2"})
	if env["A"] != "2" {
		t.Errorf("later duplicate should win, got %q", env["A"])
	}
	if env["B"] != "x=y" {
		t.Errorf("value with '=' should be kept, got %q", env["B"])
	}
	if _, ok := env["BROKEN"]; ok {
		t.Error("entries without '=' should be skipped")
	}
}
