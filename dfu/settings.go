// Copyright (C) 2018 Rob Caelers <rob.caelers@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dfu

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// AdvancedSettings are the user-facing toggles rendered into the
// pre-profile command list the configurator sends before SET_PROFILE
// or SET_ROLE. The camelCase JSON tags keep the on-disk format aligned
// with the original Tauri settings UI's schema.
type AdvancedSettings struct {
	DisableLEDDuringTherapy bool `json:"disableLedDuringTherapy"`
	DebugMode               bool `json:"debugMode"`
}

// ToPreProfileCommands renders the settings into the ordered command
// list the configurator sends before the rebooting mode command.
// Unlike the wire format these carry no trailing newline; configure.go
// appends it once, at send time.
func (s AdvancedSettings) ToPreProfileCommands() []string {
	return []string{
		fmt.Sprintf("THERAPY_LED_OFF:%t", s.DisableLEDDuringTherapy),
		fmt.Sprintf("DEBUG:%t", s.DebugMode),
	}
}

// HasNonDefaultSettings reports whether any toggle differs from its
// zero value, useful for deciding whether it's worth logging what was
// applied.
func (s AdvancedSettings) HasNonDefaultSettings() bool {
	return s != AdvancedSettings{}
}

const settingsFileName = "advanced_settings.json"

// SettingsManager persists AdvancedSettings as a small JSON file under
// the user's home directory, resolved with go-homedir.
type SettingsManager struct {
	path string
}

// NewSettingsManager returns a manager rooted at ~/.bluebuzzah/advanced_settings.json.
func NewSettingsManager() (*SettingsManager, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, wrapf(KindIo, err, "resolving home directory")
	}
	return &SettingsManager{path: filepath.Join(home, ".bluebuzzah", settingsFileName)}, nil
}

// Path returns the resolved settings file location.
func (m *SettingsManager) Path() string { return m.path }

// Load reads settings from disk, returning the zero value if the file
// doesn't exist or is empty.
func (m *SettingsManager) Load() (AdvancedSettings, error) {
	contents, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return AdvancedSettings{}, nil
	}
	if err != nil {
		return AdvancedSettings{}, wrapf(KindIo, err, "reading %s", m.path)
	}
	if len(contents) == 0 {
		return AdvancedSettings{}, nil
	}

	var s AdvancedSettings
	if err := json.Unmarshal(contents, &s); err != nil {
		return AdvancedSettings{}, wrapf(KindIo, err, "parsing %s", m.path)
	}
	return s, nil
}

// Save writes settings to disk, creating the parent directory if
// needed.
func (m *SettingsManager) Save(s AdvancedSettings) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return wrapf(KindIo, err, "creating %s", filepath.Dir(m.path))
	}

	contents, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return wrapf(KindIo, err, "serializing settings")
	}

	if err := os.WriteFile(m.path, contents, 0o644); err != nil {
		return wrapf(KindIo, err, "writing %s", m.path)
	}
	return nil
}
