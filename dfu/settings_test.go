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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvancedSettingsDefault(t *testing.T) {
	var s AdvancedSettings
	assert.False(t, s.DisableLEDDuringTherapy)
	assert.False(t, s.DebugMode)
	assert.False(t, s.HasNonDefaultSettings())
}

func TestToPreProfileCommands(t *testing.T) {
	cases := []struct {
		name string
		s    AdvancedSettings
		want []string
	}{
		{"defaults", AdvancedSettings{}, []string{"THERAPY_LED_OFF:false", "DEBUG:false"}},
		{"led disabled", AdvancedSettings{DisableLEDDuringTherapy: true}, []string{"THERAPY_LED_OFF:true", "DEBUG:false"}},
		{"debug enabled", AdvancedSettings{DebugMode: true}, []string{"THERAPY_LED_OFF:false", "DEBUG:true"}},
		{"both enabled", AdvancedSettings{DisableLEDDuringTherapy: true, DebugMode: true}, []string{"THERAPY_LED_OFF:true", "DEBUG:true"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.s.ToPreProfileCommands())
		})
	}
}

func TestHasNonDefaultSettings(t *testing.T) {
	assert.True(t, AdvancedSettings{DisableLEDDuringTherapy: true}.HasNonDefaultSettings())
	assert.True(t, AdvancedSettings{DebugMode: true}.HasNonDefaultSettings())
	assert.False(t, AdvancedSettings{}.HasNonDefaultSettings())
}

func TestSettingsManagerLoadDefaultsWhenAbsent(t *testing.T) {
	m := &SettingsManager{path: filepath.Join(t.TempDir(), "advanced_settings.json")}
	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, AdvancedSettings{}, s)
}

func TestSettingsManagerSaveAndLoad(t *testing.T) {
	m := &SettingsManager{path: filepath.Join(t.TempDir(), "nested", "advanced_settings.json")}

	want := AdvancedSettings{DisableLEDDuringTherapy: true, DebugMode: true}
	require.NoError(t, m.Save(want))

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsManagerJSONUsesCamelCase(t *testing.T) {
	m := &SettingsManager{path: filepath.Join(t.TempDir(), "advanced_settings.json")}
	require.NoError(t, m.Save(AdvancedSettings{DisableLEDDuringTherapy: true, DebugMode: true}))

	raw, err := os.ReadFile(m.path)
	require.NoError(t, err)
	contents := string(raw)
	assert.Contains(t, contents, `"disableLedDuringTherapy"`)
	assert.Contains(t, contents, `"debugMode"`)
	assert.NotContains(t, contents, "disable_led_during_therapy")
}
