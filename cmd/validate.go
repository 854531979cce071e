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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type validateCommand struct {
	*baseCommand
}

func newValidateCommand() *validateCommand {
	c := &validateCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "validate <firmware.zip>",
		Short: "Validate a firmware package without touching a device",
		Example: `bluebuzzah-dfu validate FW.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0])
		},
	})

	return c
}

func (c *validateCommand) runValidate(path string) error {
	info, err := c.cli.coordinator.ValidatePackage(path)
	if err != nil {
		return errors.Wrap(err, "failed to validate firmware package")
	}

	fmt.Printf("firmware size  : %d bytes\n", info.FirmwareSize)
	fmt.Printf("init size      : %d bytes\n", info.InitSize)
	fmt.Printf("firmware crc16 : 0x%04x\n", info.FirmwareCrc16)
	fmt.Printf("device type    : 0x%04x\n", info.DeviceType)
	fmt.Printf("dfu version    : %.1f\n", info.DfuVersion)
	return nil
}
