// renderer/errors.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import "errors"

var (
	ErrUnknownCommand  = errors.New("unknown render command")
	ErrEyeNotRendered  = errors.New("stereo eye pass produced no views")
	ErrMissingBuiltin  = errors.New("required builtin shader program failed to load")
	ErrRequiredFeature = errors.New("required GPU feature not available")
	ErrNotInitialized  = errors.New("render backend not initialized")
	ErrShaderNotFound  = errors.New("shader source not found")
	ErrUserQuit        = errors.New("user chose to quit")
)
