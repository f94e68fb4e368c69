// Package definition reads service definition files: JSON documents that
// describe everything svcctl install needs to create and configure a service.
//
//	{
//	  "name": "probe",
//	  "display_name": "Probe service",
//	  "type": "own",
//	  "start": "auto",
//	  "executable": "%ProgramFiles%\\svcctl\\probesvc.exe",
//	  "arguments": ["-addr", "127.0.0.1:9"],
//	  "dependencies": ["Tcpip"],
//	  "group_dependencies": ["NetworkProvider"],
//	  "description": "Sends a UDP ping at a fixed interval",
//	  "delayed_auto_start": true,
//	  "preshutdown_timeout": "30s",
//	  "failure_actions": {
//	    "reset_period": "24h",
//	    "actions": [{"type": "restart", "delay": "5s"}]
//	  }
//	}
//
// Environment references (%VAR% or ${VAR}) in the executable path and
// arguments are expanded when the definition is converted.
package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/svcctl/pkg/scm"
)

// Definition is the decoded form of a definition file.
type Definition struct {
	Name              string   `json:"name"`
	DisplayName       string   `json:"display_name,omitempty"`
	Type              string   `json:"type,omitempty"`
	Start             string   `json:"start,omitempty"`
	ErrorControl      string   `json:"error_control,omitempty"`
	Executable        string   `json:"executable"`
	Arguments         []string `json:"arguments,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty"`
	GroupDependencies []string `json:"group_dependencies,omitempty"`
	Account           *Account `json:"account,omitempty"`

	Description        *string         `json:"description,omitempty"`
	DelayedAutoStart   *bool           `json:"delayed_auto_start,omitempty"`
	PreshutdownTimeout *Duration       `json:"preshutdown_timeout,omitempty"`
	SidType            string          `json:"sid_type,omitempty"`
	FailureActions     *FailureActions `json:"failure_actions,omitempty"`
}

// Account names the run-as identity. The password is never stored in the
// file; PasswordRef points at a keyring entry instead.
type Account struct {
	Name        string `json:"name"`
	PasswordRef string `json:"password_ref,omitempty"`
}

// FailureActions mirrors scm.FailureActions. A nil field leaves the current
// setting unchanged; an empty string or empty list clears it.
type FailureActions struct {
	ResetPeriod        string   `json:"reset_period,omitempty"`
	RebootMessage      *string  `json:"reboot_message,omitempty"`
	Command            *string  `json:"command,omitempty"`
	Actions            []Action `json:"actions"`
	OnNonCrashFailures *bool    `json:"on_non_crash_failures,omitempty"`
}

// Action is one entry of the failure action list.
type Action struct {
	Type  string   `json:"type"`
	Delay Duration `json:"delay,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("duration %q is negative", s)
	}
	*d = Duration(v)
	return nil
}

// lookupEnv resolves environment references, replaced in tests.
var lookupEnv = os.LookupEnv

// Load reads and validates the definition at path.
func Load(fs afero.Fs, path string) (*Definition, error) {
	def, err := Read(fs, path)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Read decodes the definition at path without validating it, for callers
// that complete it from other sources first.
func Read(fs afero.Fs, path string) (*Definition, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	def, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a definition document.
func Parse(data []byte) (*Definition, error) {
	def, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// decode rejects unknown fields so typos do not silently drop settings.
func decode(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &def, nil
}

// Save writes def as indented JSON.
func Save(fs afero.Fs, path string, def *Definition) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, append(data, '\n'), 0o644)
}

// Validate checks every enumerated field and that the service info can be
// encoded for the SCM.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("definition has no name")
	}
	if d.Executable == "" {
		return errors.New("definition has no executable")
	}
	info, err := d.ServiceInfo()
	if err != nil {
		return err
	}
	if err := info.Validate(); err != nil {
		return err
	}
	if _, err := d.Sid(); err != nil {
		return err
	}
	if _, err := d.Failure(); err != nil {
		return err
	}
	return nil
}

// ServiceInfo converts the definition to the record passed to create or
// change config. The account password is left empty; callers resolve
// Account.PasswordRef separately.
func (d *Definition) ServiceInfo() (scm.ServiceInfo, error) {
	typ, err := scm.ParseServiceType(d.Type)
	if err != nil {
		return scm.ServiceInfo{}, err
	}
	start := scm.OnDemand
	if d.Start != "" {
		if start, err = scm.ParseStartType(d.Start); err != nil {
			return scm.ServiceInfo{}, err
		}
	}
	ec := scm.ErrorNormal
	if d.ErrorControl != "" {
		if ec, err = scm.ParseErrorControl(d.ErrorControl); err != nil {
			return scm.ServiceInfo{}, err
		}
	}

	info := scm.ServiceInfo{
		Name:           d.Name,
		DisplayName:    d.DisplayName,
		ServiceType:    typ,
		StartType:      start,
		ErrorControl:   ec,
		ExecutablePath: expand(d.Executable),
	}
	if info.DisplayName == "" {
		info.DisplayName = d.Name
	}
	for _, a := range d.Arguments {
		info.LaunchArguments = append(info.LaunchArguments, expand(a))
	}
	for _, name := range d.Dependencies {
		info.Dependencies = append(info.Dependencies, scm.ServiceDependency(name))
	}
	for _, name := range d.GroupDependencies {
		info.Dependencies = append(info.Dependencies, scm.GroupDependency(name))
	}
	if d.Account != nil && d.Account.Name != "" {
		info.Account = &scm.Account{Name: d.Account.Name}
	}
	return info, nil
}

// Sid returns the configured SID type, if any.
func (d *Definition) Sid() (scm.Optional[scm.SidType], error) {
	if d.SidType == "" {
		return scm.None[scm.SidType](), nil
	}
	t, err := scm.ParseSidType(d.SidType)
	if err != nil {
		return scm.None[scm.SidType](), err
	}
	return scm.Some(t), nil
}

// Failure converts the failure_actions block. It returns an absent value
// when the definition has none.
func (d *Definition) Failure() (scm.Optional[scm.FailureActions], error) {
	if d.FailureActions == nil {
		return scm.None[scm.FailureActions](), nil
	}
	fa, err := d.FailureActions.Convert()
	if err != nil {
		return scm.None[scm.FailureActions](), fmt.Errorf("failure_actions: %w", err)
	}
	return scm.Some(fa), nil
}

// Convert builds the scm record. An empty or "never" reset period keeps the
// failure count forever.
func (f *FailureActions) Convert() (scm.FailureActions, error) {
	var fa scm.FailureActions
	switch strings.ToLower(f.ResetPeriod) {
	case "", "never", "infinite":
		fa.ResetPeriod = scm.ResetNever()
	default:
		d, err := time.ParseDuration(f.ResetPeriod)
		if err != nil {
			return fa, fmt.Errorf("reset_period: %w", err)
		}
		if d < 0 || d > scm.MaxResetPeriod {
			return fa, fmt.Errorf("reset_period %q is out of range", f.ResetPeriod)
		}
		fa.ResetPeriod = scm.ResetAfter(d)
	}
	if f.RebootMessage != nil {
		fa.RebootMessage = scm.Some(*f.RebootMessage)
	}
	if f.Command != nil {
		fa.Command = scm.Some(*f.Command)
	}
	if f.Actions != nil {
		actions := make([]scm.Action, 0, len(f.Actions))
		for i, a := range f.Actions {
			typ, err := scm.ParseActionType(a.Type)
			if err != nil {
				return fa, fmt.Errorf("action %d: %w", i, err)
			}
			delay := time.Duration(a.Delay)
			if delay < 0 || delay > scm.MaxActionDelay {
				return fa, fmt.Errorf("action %d: delay %s is out of range", i, delay)
			}
			actions = append(actions, scm.Action{Type: typ, Delay: delay})
		}
		fa.Actions = scm.Some(actions)
	}
	return fa, nil
}

// FromFailureActions is the inverse of Convert, used when exporting the
// current configuration of an installed service.
func FromFailureActions(fa scm.FailureActions) *FailureActions {
	out := &FailureActions{ResetPeriod: "never"}
	if !fa.ResetPeriod.Never() {
		out.ResetPeriod = fa.ResetPeriod.After().String()
	}
	if msg, ok := fa.RebootMessage.Get(); ok {
		out.RebootMessage = &msg
	}
	if cmd, ok := fa.Command.Get(); ok {
		out.Command = &cmd
	}
	actions, _ := fa.Actions.Get()
	out.Actions = make([]Action, 0, len(actions))
	for _, a := range actions {
		out.Actions = append(out.Actions, Action{
			Type:  a.Type.String(),
			Delay: Duration(a.Delay),
		})
	}
	return out
}

// expand replaces %VAR% and ${VAR} references. Unknown variables and any
// other $ are left as written so the SCM sees the same text the author did.
func expand(s string) string {
	if strings.Contains(s, "%") {
		s = expandPercent(s)
	}
	if strings.Contains(s, "${") {
		s = expandBraced(s)
	}
	return s
}

func expandBraced(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+2:], '}')
		if end < 0 {
			break
		}
		end += start + 2
		name := s[start+2 : end]
		b.WriteString(s[:start])
		if v, ok := lookupEnv(name); ok && name != "" {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}

func expandPercent(s string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			break
		}
		end += start + 1
		name := s[start+1 : end]
		b.WriteString(s[:start])
		if v, ok := lookupEnv(name); ok && name != "" {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}
