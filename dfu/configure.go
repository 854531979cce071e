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
	"strings"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// bootMarkers are substrings the post-DFU application prints as it
// comes up; seeing any of them lets the configurator stop draining
// early instead of waiting out the full silence window.
var bootMarkers = []string{"[READY]", "[INIT]", "[BOOT]", "BlueBuzzah"}

func containsBootMarker(buf []byte) bool {
	s := string(buf)
	for _, m := range bootMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// drainBootOutput reads the application's boot banner so it doesn't
// get mistaken for a command response. It stops on
// whichever comes first: a known marker (plus a short settle), or
// BootDrainSilenceMs of no new bytes; the scratch buffer is capped at
// BootDrainMaxBuffer.
func drainBootOutput(t *Transport) []byte {
	buf := make([]byte, 128)
	var acc []byte
	lastByte := time.Now()
	deadline := time.Now().Add(BootDrainMaxMs * time.Millisecond)
	var settleBy time.Time

	for time.Now().Before(deadline) {
		n, _ := t.Read(buf, BootDrainPokeMs)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if len(acc) > BootDrainMaxBuffer {
				acc = acc[len(acc)-BootDrainMaxBuffer:]
			}
			lastByte = time.Now()
			if settleBy.IsZero() && containsBootMarker(acc) {
				settleBy = time.Now().Add(BootDrainSettleMs * time.Millisecond)
			}
		}
		if !settleBy.IsZero() && time.Now().After(settleBy) {
			break
		}
		if time.Since(lastByte) > BootDrainSilenceMs*time.Millisecond {
			break
		}
	}
	return acc
}

// readResponseWithin accumulates bytes until one of the three response
// markers appears or timeoutMs elapses, returning whatever was
// accumulated either way — silence is not itself an error, since older
// firmware may simply ignore an unrecognized command.
func readResponseWithin(t *Transport, timeoutMs int) string {
	buf := make([]byte, 256)
	var acc []byte
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	for time.Now().Before(deadline) {
		n, err := t.Read(buf, 100)
		if err != nil {
			break
		}
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if strings.Contains(string(acc), "[CONFIG]") ||
				strings.Contains(string(acc), "[SETTING]") ||
				strings.Contains(string(acc), "[ERROR]") {
				break
			}
		}
	}
	return string(acc)
}

// sendSettingCommand sends a non-rebooting setting line (already in
// "NAME:value" form) and tolerates silence as success.
func sendSettingCommand(t *Transport, command string) error {
	if err := t.Write([]byte(command + "\n")); err != nil {
		return wrapf(KindIo, err, "sending %q", command)
	}
	resp := readResponseWithin(t, SettingConfigTimeoutMs)
	if strings.Contains(resp, "[ERROR]") {
		return errf(KindSettingConfigFailed, "setting %q rejected: %s", command, strings.TrimSpace(resp))
	}
	return nil
}

// sendModeCommand sends a rebooting mode command (SET_ROLE/SET_PROFILE)
// and requires an explicit [CONFIG] acknowledgement within timeoutMs.
func sendModeCommand(t *Transport, command string, timeoutMs int, failureKind Kind) error {
	if err := t.Write([]byte(command + "\n")); err != nil {
		return wrapf(KindIo, err, "sending %q", command)
	}
	resp := readResponseWithin(t, timeoutMs)
	if strings.Contains(resp, "[ERROR]") {
		return errf(failureKind, "%q rejected: %s", command, strings.TrimSpace(resp))
	}
	if strings.Contains(resp, "[CONFIG]") {
		return nil
	}
	return errf(KindTimeout, "no [CONFIG] response to %q within %dms", command, timeoutMs)
}

// configureAfterFlash runs the full post-DFU dialog: drain the boot
// banner, apply any pending settings, then SET_ROLE if role is
// non-empty, and re-locate the device once it reboots again.
func configureAfterFlash(port, role string, settings *AdvancedSettings, registry *Registry, identifier DeviceIdentifier, progress ProgressFunc) error {
	transport, err := OpenTransport(port)
	if err != nil {
		return err
	}
	defer transport.Close()

	drainBootOutput(transport)

	if settings != nil {
		for _, cmd := range settings.ToPreProfileCommands() {
			if err := sendSettingCommand(transport, cmd); err != nil {
				return err
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	if role == "" {
		return nil
	}

	emit(progress, Stage{Kind: StageLog, Message: "setting role " + role})
	if err := sendModeCommand(transport, "SET_ROLE:"+role, RoleConfigTimeoutMs, KindRoleConfigFailed); err != nil {
		return err
	}
	transport.Close()

	time.Sleep(RebootSettleDelay)
	_, err = WaitForApplication(registry.Enumerate, identifier, RebootTimeoutMs)
	return err
}

// ConfigureRole runs the SET_ROLE half of the configurator against an
// already-application-mode device, mirroring ConfigureProfile below for
// the coordinator's standalone set_role operation — reassigning a role
// without reflashing firmware.
func ConfigureRole(port, role string, settings *AdvancedSettings, registry *Registry, progress ProgressFunc) error {
	device, ok := registry.GetDeviceByPort(port)
	if !ok {
		return errf(KindNoDeviceFound, "no compatible device on %s", port)
	}
	identifier := NewDeviceIdentifier(device)

	transport, err := OpenTransport(port)
	if err != nil {
		return err
	}
	defer transport.Close()

	drainBootOutput(transport)

	if settings != nil {
		for _, cmd := range settings.ToPreProfileCommands() {
			if err := sendSettingCommand(transport, cmd); err != nil {
				return err
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	emit(progress, Stage{Kind: StageLog, Message: "setting role " + role})
	if err := sendModeCommand(transport, "SET_ROLE:"+role, RoleConfigTimeoutMs, KindRoleConfigFailed); err != nil {
		return err
	}
	transport.Close()

	time.Sleep(RebootSettleDelay)
	if _, err := WaitForApplication(registry.Enumerate, identifier, RebootTimeoutMs); err != nil {
		jww.WARN.Printf("device did not reappear after role change: %v", err)
		return err
	}
	return nil
}

// validProfiles is the closed set of names SET_PROFILE accepts.
var validProfiles = map[string]bool{
	"REGULAR": true, "NOISY": true, "HYBRID": true, "GENTLE": true,
}

// ConfigureProfile runs the SET_PROFILE half of the configurator
// against an already-application-mode device, for the coordinator's
// standalone profile-change entry point. Flash itself never sends
// SET_PROFILE; its post-update dialog only sends SET_ROLE.
func ConfigureProfile(port, profile string, settings *AdvancedSettings, registry *Registry, progress ProgressFunc) error {
	if !validProfiles[profile] {
		return errf(KindProfileConfigFailed, "unknown profile %q", profile)
	}

	device, ok := registry.GetDeviceByPort(port)
	if !ok {
		return errf(KindNoDeviceFound, "no compatible device on %s", port)
	}
	identifier := NewDeviceIdentifier(device)

	transport, err := OpenTransport(port)
	if err != nil {
		return err
	}
	defer transport.Close()

	drainBootOutput(transport)

	if settings != nil {
		for _, cmd := range settings.ToPreProfileCommands() {
			if err := sendSettingCommand(transport, cmd); err != nil {
				return err
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	emit(progress, Stage{Kind: StageLog, Message: "setting profile " + profile})
	if err := sendModeCommand(transport, "SET_PROFILE:"+profile, ProfileConfigTimeoutMs, KindProfileConfigFailed); err != nil {
		return err
	}
	transport.Close()

	time.Sleep(RebootSettleDelay)
	if _, err := WaitForApplication(registry.Enumerate, identifier, RebootTimeoutMs); err != nil {
		jww.WARN.Printf("device did not reappear after profile change: %v", err)
		return err
	}
	return nil
}
