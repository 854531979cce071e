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

	"github.com/spf13/cobra"
)

type detectCommand struct {
	*baseCommand
}

func newDetectCommand() *detectCommand {
	c := &detectCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "detect",
		Short: "Detect connected BlueBuzzah devices",
		Example: `bluebuzzah-dfu detect`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDetect()
		},
	})

	return c
}

func (c *detectCommand) runDetect() error {
	devices := c.cli.coordinator.Detect()
	if len(devices) == 0 {
		fmt.Println("No compatible devices found.")
		return nil
	}

	for _, d := range devices {
		mode := "application"
		if d.InBootloader {
			mode = "bootloader"
		}
		fmt.Printf("%s : %s (vid=0x%04x pid=0x%04x mode=%s serial=%s)\n", d.Port, d.Label, d.VID, d.PID, mode, d.Serial)
	}
	return nil
}
