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

// cancelCommand exists for API parity with the engine's public surface.
// Since every invocation of this binary is a fresh process with its own
// Coordinator, cancel only has an effect when the CLI is embedded as a
// library and the same *Cli (and therefore the same Coordinator) is
// shared across goroutines; a Ctrl-C against a running `flash` already
// calls Cancel on that process directly. See cmd/flash.go.
type cancelCommand struct {
	*baseCommand
}

func newCancelCommand() *cancelCommand {
	c := &cancelCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Cancel the DFU operation in progress, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCancel()
		},
	})

	return c
}

func (c *cancelCommand) runCancel() error {
	c.cli.coordinator.Cancel()
	fmt.Println("Cancellation requested.")
	return nil
}
