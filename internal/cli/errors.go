// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - error display and exit codes for augchat commands.
//
// Commands always return errors; Execute displays them once and maps them
// to an exit code.

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/config"
	"github.com/jeranaias/augchat/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the endpoint rejected our credentials
	ExitAuthError = 4
	// ExitNetworkError indicates the endpoint could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "sessions")
	Action  string // Action being performed (e.g., "delete")
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError represents invalid flags or arguments.
type UsageError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewUsageError creates a new usage error.
func NewUsageError(field, value, reason string) error {
	return &UsageError{Field: field, Value: value, Reason: reason}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON in jsonMode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		displayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

func displayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":      err.Error(),
		"success":    false,
		"exit_code":  GetExitCode(err),
		"error_type": errorType(err),
	}

	var ce *CommandError
	if errors.As(err, &ce) {
		output["command"] = ce.Command
		output["action"] = ce.Action
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		output["field"] = ue.Field
		output["value"] = ue.Value
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(output)
}

func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "usage_error"
	case ExitConfigError:
		return "config_error"
	case ExitAuthError:
		return "auth_error"
	case ExitNetworkError:
		return "network_error"
	case ExitNotFoundError:
		return "not_found_error"
	default:
		return "generic_error"
	}
}

// GetExitCode determines the exit code for err from its type.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var cfgErr config.ValidationErrors
	var cfgOne config.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &cfgOne) {
		return ExitConfigError
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Command == "config" {
		return ExitConfigError
	}

	if errors.Is(err, storage.ErrConversationNotFound) {
		return ExitNotFoundError
	}

	if ce, ok := chatapi.AsClientError(err); ok {
		switch ce.Type {
		case chatapi.ErrTypeUnauthorized:
			return ExitAuthError
		case chatapi.ErrTypeTransport:
			return ExitNetworkError
		}
	}

	return ExitGeneralError
}
