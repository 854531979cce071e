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

package cmd

import (
	"fmt"

	"github.com/bluebuzzah/dfu/dfu"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
)

type setRoleCommand struct {
	*baseCommand

	port   string
	ledOff bool
	debug  bool
}

func newSetRoleCommand() *setRoleCommand {
	c := &setRoleCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "set-role <role>",
		Short: "Reboot a device and assign it a role, without reflashing",
		Example: `bluebuzzah-dfu set-role --port /dev/cu.usbmodem14201 PRIMARY`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSetRole(args[0])
		},
	})

	c.cmd.Flags().StringVarP(&c.port, "port", "p", "", "Serial port the device is currently enumerated on")
	c.cmd.Flags().BoolVar(&c.ledOff, "therapy-led-off", false, "Disable the LED during therapy")
	c.cmd.Flags().BoolVar(&c.debug, "debug-mode", false, "Enable device debug mode")

	return c
}

func (c *setRoleCommand) runSetRole(role string) error {
	if c.port == "" {
		return errors.New("no port specified, use --port to specify the serial port")
	}

	jww.INFO.Printf("Setting role '%s' on device at '%s'\n", role, c.port)

	settings := &dfu.AdvancedSettings{
		DisableLEDDuringTherapy: c.ledOff,
		DebugMode:               c.debug,
	}

	err := c.cli.coordinator.SetRole(c.port, role, settings, func(s dfu.Stage) {
		jww.INFO.Println(s.String())
	})
	if err != nil {
		return errors.Wrap(err, "failed to set role")
	}

	fmt.Println("Role applied.")
	return nil
}

type setProfileCommand struct {
	*baseCommand

	port   string
	ledOff bool
	debug  bool
}

func newSetProfileCommand() *setProfileCommand {
	c := &setProfileCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "set-profile <profile>",
		Short: "Change the therapy profile of an already-flashed device",
		Long: `This command sends SET_PROFILE to a device already running its
application firmware, without going through the bootloader. Valid profiles
are REGULAR, NOISY, HYBRID and GENTLE.`,
		Example: `bluebuzzah-dfu set-profile --port /dev/cu.usbmodem14201 HYBRID`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSetProfile(args[0])
		},
	})

	c.cmd.Flags().StringVarP(&c.port, "port", "p", "", "Serial port the device is currently enumerated on")
	c.cmd.Flags().BoolVar(&c.ledOff, "therapy-led-off", false, "Disable the LED during therapy")
	c.cmd.Flags().BoolVar(&c.debug, "debug-mode", false, "Enable device debug mode")

	return c
}

func (c *setProfileCommand) runSetProfile(profile string) error {
	if c.port == "" {
		return errors.New("no port specified, use --port to specify the serial port")
	}

	jww.INFO.Printf("Setting profile '%s' on device at '%s'\n", profile, c.port)

	settings := &dfu.AdvancedSettings{
		DisableLEDDuringTherapy: c.ledOff,
		DebugMode:               c.debug,
	}

	err := c.cli.coordinator.SetProfile(c.port, profile, settings, func(s dfu.Stage) {
		jww.INFO.Println(s.String())
	})
	if err != nil {
		return errors.Wrap(err, "failed to set profile")
	}

	fmt.Println("Profile applied.")
	return nil
}
