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
	"os"
	"os/signal"

	"github.com/bluebuzzah/dfu/dfu"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"gopkg.in/cheggaaa/pb.v2"
)

type flashCommand struct {
	*baseCommand

	port        string
	firmware    string
	role        string
	ledOff      bool
	debug       bool
}

func newFlashCommand() *flashCommand {
	c := &flashCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "flash",
		Short: "Flash firmware and apply post-update settings",
		Long: `This command flashes a firmware package onto a BlueBuzzah device over
USB serial, resetting it into bootloader mode first if needed, then waits
for the device to reboot into its application and applies the requested
role and advanced settings.`,
		Example: `bluebuzzah-dfu flash --port /dev/cu.usbmodem14201 --firmware FW.zip
bluebuzzah-dfu flash --port /dev/cu.usbmodem14201 --firmware FW.zip --role PRIMARY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFlash()
		},
	})

	c.cmd.Flags().StringVarP(&c.port, "port", "p", "", "Serial port the device is currently enumerated on")
	c.cmd.Flags().StringVarP(&c.firmware, "firmware", "f", "", "Path to the firmware package (zip)")
	c.cmd.Flags().StringVarP(&c.role, "role", "r", "", "Role to assign after the device reboots (SET_ROLE)")
	c.cmd.Flags().BoolVar(&c.ledOff, "therapy-led-off", false, "Disable the LED during therapy")
	c.cmd.Flags().BoolVar(&c.debug, "debug-mode", false, "Enable device debug mode")

	return c
}

func (c *flashCommand) runFlash() error {
	if c.port == "" {
		return errors.New("no port specified, use --port to specify the serial port")
	}
	if c.firmware == "" {
		return errors.New("no firmware package specified, use --firmware to specify the zip archive")
	}

	jww.INFO.Printf("Flashing '%s' to device on '%s'\n", c.firmware, c.port)

	settings := &dfu.AdvancedSettings{
		DisableLEDDuringTherapy: c.ledOff,
		DebugMode:               c.debug,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			jww.INFO.Println("interrupt received, cancelling...")
			c.cli.coordinator.Cancel()
		}
	}()

	var bar *pb.ProgressBar
	progress := func(s dfu.Stage) {
		switch s.Kind {
		case dfu.StageUploading:
			if bar == nil {
				bar = pb.ProgressBarTemplate(`{{ white "flash:" }} {{bar . | green}} {{percent . | white}}`).Start(s.Total)
			}
			if bar.Total() != int64(s.Total) {
				bar.SetTotal(int64(s.Total))
			}
			bar.SetCurrent(int64(s.Sent))
		default:
			jww.INFO.Println(s.String())
		}
	}

	err := c.cli.coordinator.Flash(c.port, c.firmware, c.role, settings, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return errors.Wrap(err, "failed to flash device")
	}

	fmt.Println("Flash complete.")
	return nil
}
