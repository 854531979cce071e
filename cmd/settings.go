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
)

type settingsCommand struct {
	*baseCommand

	ledOff bool
	debug  bool
}

func newSettingsCommand() *settingsCommand {
	c := &settingsCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "settings",
		Short: "View or update the saved advanced settings",
		Long: `This command reads and writes the advanced settings file
(~/.bluebuzzah/advanced_settings.json). The flash, set-role and
set-profile commands do not read this file; they send the values of
their own --therapy-led-off and --debug-mode flags.`,
		Example: `bluebuzzah-dfu settings
bluebuzzah-dfu settings --therapy-led-off --debug-mode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSettings(cmd)
		},
	})

	c.cmd.Flags().BoolVar(&c.ledOff, "therapy-led-off", false, "Disable the LED during therapy")
	c.cmd.Flags().BoolVar(&c.debug, "debug-mode", false, "Enable device debug mode")

	return c
}

func (c *settingsCommand) runSettings(cmd *cobra.Command) error {
	manager, err := dfu.NewSettingsManager()
	if err != nil {
		return errors.Wrap(err, "failed to resolve settings path")
	}

	changed := cmd.Flags().Changed("therapy-led-off") || cmd.Flags().Changed("debug-mode")
	if !changed {
		s, err := manager.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load settings")
		}
		fmt.Printf("path                      : %s\n", manager.Path())
		fmt.Printf("disableLedDuringTherapy  : %v\n", s.DisableLEDDuringTherapy)
		fmt.Printf("debugMode                : %v\n", s.DebugMode)
		return nil
	}

	s := dfu.AdvancedSettings{
		DisableLEDDuringTherapy: c.ledOff,
		DebugMode:               c.debug,
	}
	if err := manager.Save(s); err != nil {
		return errors.Wrap(err, "failed to save settings")
	}

	fmt.Printf("Saved settings to %s\n", manager.Path())
	return nil
}
