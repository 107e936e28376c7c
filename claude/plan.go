package claude

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"
)

// EnvOverrides are environment changes applied to the child process only.
type EnvOverrides struct {
	Set   map[string]string `json:"set,omitempty"`
	Unset []string          `json:"unset,omitempty"`
}

// IsZero reports whether the overrides change nothing.
func (o EnvOverrides) IsZero() bool {
	return len(o.Set) == 0 && len(o.Unset) == 0
}

// Apply returns base with unset keys removed and set keys replaced. Set
// keys are appended in sorted order so the result is deterministic.
func (o EnvOverrides) Apply(base []string) []string {
	drop := make(map[string]bool, len(o.Unset)+len(o.Set))
	for _, k := range o.Unset {
		drop[k] = true
	}
	for k := range o.Set {
		drop[k] = true
	}

	out := make([]string, 0, len(base)+len(o.Set))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if drop[key] {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range slices.Sorted(maps.Keys(o.Set)) {
		out = append(out, k+"="+o.Set[k])
	}
	return out
}

func (o EnvOverrides) clone() EnvOverrides {
	return EnvOverrides{Set: maps.Clone(o.Set), Unset: slices.Clone(o.Unset)}
}

// LaunchPlan is the resolved, immutable description of one claude run.
// Accessors return copies.
type LaunchPlan struct {
	mode        Mode
	binary      string
	args        []string
	env         EnvOverrides
	workDir     string
	logDir      string
	sessionName string
	prompt      string
	notify      bool

	clipboard       bool
	replaceSession  bool
	interactiveWait time.Duration
	acceptTrust     bool
	trustWait       time.Duration
}

func (p LaunchPlan) Mode() Mode          { return p.mode }
func (p LaunchPlan) Binary() string      { return p.binary }
func (p LaunchPlan) Args() []string      { return slices.Clone(p.args) }
func (p LaunchPlan) Env() EnvOverrides   { return p.env.clone() }
func (p LaunchPlan) WorkDir() string     { return p.workDir }
func (p LaunchPlan) LogDir() string      { return p.logDir }
func (p LaunchPlan) SessionName() string { return p.sessionName }
func (p LaunchPlan) Prompt() string      { return p.prompt }
func (p LaunchPlan) Notify() bool        { return p.notify }

func (p LaunchPlan) Clipboard() bool                { return p.clipboard }
func (p LaunchPlan) ReplaceSession() bool           { return p.replaceSession }
func (p LaunchPlan) InteractiveWait() time.Duration { return p.interactiveWait }
func (p LaunchPlan) AcceptTrust() bool              { return p.acceptTrust }
func (p LaunchPlan) TrustWait() time.Duration       { return p.trustWait }

// Argv returns the binary followed by its arguments.
func (p LaunchPlan) Argv() []string {
	return append([]string{p.binary}, p.args...)
}

// planJSON is the wire form used to hand a plan to the background
// supervisor process.
type planJSON struct {
	Mode            Mode          `json:"mode"`
	Binary          string        `json:"binary"`
	Args            []string      `json:"args"`
	Env             EnvOverrides  `json:"env"`
	WorkDir         string        `json:"work_dir,omitempty"`
	LogDir          string        `json:"log_dir,omitempty"`
	SessionName     string        `json:"session_name,omitempty"`
	Prompt          string        `json:"prompt,omitempty"`
	Notify          bool          `json:"notify,omitempty"`
	Clipboard       bool          `json:"clipboard,omitempty"`
	ReplaceSession  bool          `json:"replace_session,omitempty"`
	InteractiveWait time.Duration `json:"interactive_wait,omitempty"`
	AcceptTrust     bool          `json:"accept_trust,omitempty"`
	TrustWait       time.Duration `json:"trust_wait,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p LaunchPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(planJSON{
		Mode:            p.mode,
		Binary:          p.binary,
		Args:            p.args,
		Env:             p.env,
		WorkDir:         p.workDir,
		LogDir:          p.logDir,
		SessionName:     p.sessionName,
		Prompt:          p.prompt,
		Notify:          p.notify,
		Clipboard:       p.clipboard,
		ReplaceSession:  p.replaceSession,
		InteractiveWait: p.interactiveWait,
		AcceptTrust:     p.acceptTrust,
		TrustWait:       p.trustWait,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded plan is checked
// for the fields every mode needs.
func (p *LaunchPlan) UnmarshalJSON(data []byte) error {
	var w planJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Mode {
	case ModeHeadless, ModeInteractive, ModeBackground:
	default:
		return invalid("plan has unresolved mode %q", w.Mode)
	}
	if w.Binary == "" {
		return invalid("plan has no binary")
	}
	*p = LaunchPlan{
		mode:            w.Mode,
		binary:          w.Binary,
		args:            w.Args,
		env:             w.Env,
		workDir:         w.WorkDir,
		logDir:          w.LogDir,
		sessionName:     w.SessionName,
		prompt:          w.Prompt,
		notify:          w.Notify,
		clipboard:       w.Clipboard,
		replaceSession:  w.ReplaceSession,
		interactiveWait: w.InteractiveWait,
		acceptTrust:     w.AcceptTrust,
		trustWait:       w.TrustWait,
	}
	return nil
}
