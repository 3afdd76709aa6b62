// cmd/neo/dialogs.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ncruces/zenity"

	"github.com/neovr/neo/log"
)

// dialogPrompter asks questions with native dialog boxes.
type dialogPrompter struct {
	lg *log.Logger
}

func (p dialogPrompter) ConfirmSoftwareRenderer(renderer string) bool {
	err := zenity.Question(
		fmt.Sprintf("The GPU driver reports %q, a software renderer.\n\n"+
			"Rendering will be very slow. Check that the graphics drivers are installed.", renderer),
		zenity.Title("neo"),
		zenity.WarningIcon,
		zenity.OKLabel("Continue"),
		zenity.CancelLabel("Quit"))
	if errors.Is(err, zenity.ErrCanceled) {
		return false
	} else if err != nil {
		// No way to ask; carry on as if they'd said yes.
		p.lg.Warnf("software renderer prompt: %v", err)
	}
	return true
}

func ShowErrorDialog(lg *log.Logger, s string, args ...any) {
	msg := fmt.Sprintf(s, args...)
	lg.Error(msg)
	if err := zenity.Error(msg, zenity.Title("neo"), zenity.ErrorIcon); err != nil {
		lg.Warnf("error dialog: %v", err)
	}
}

// ShowFatalErrorDialog reports the error and exits.
func ShowFatalErrorDialog(lg *log.Logger, s string, args ...any) {
	ShowErrorDialog(lg, s, args...)
	os.Exit(1)
}
