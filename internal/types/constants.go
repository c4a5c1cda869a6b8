// Package types provides type-safe constants for the updater state machine.
//
// This package centralizes the enumerated states reported by an update
// session, replacing magic strings with typed constants that provide
// compile-time safety and validation methods.
package types

import (
	"fmt"
	"strings"
)

// State is the detailed state of an update session.
type State string

const (
	// StateIdle is the state of a freshly constructed session.
	StateIdle State = "idle"
	// StateFetching indicates the release metadata is being requested.
	StateFetching State = "fetching"
	// StateCheckingUpdate indicates the release tag is being compared to the program version.
	StateCheckingUpdate State = "checking_update"
	// StateNoUpdateAvailable indicates the running program is current.
	StateNoUpdateAvailable State = "no_update_available"
	// StateUpdateAvailable indicates a newer release exists.
	StateUpdateAvailable State = "update_available"
	// StateDownloading indicates the asset transfer is in progress.
	StateDownloading State = "downloading"
	// StateRetrying indicates a stalled transfer was restarted.
	StateRetrying State = "retrying"
	// StateCanceled indicates the download retry budget ran out.
	StateCanceled State = "canceled"
	// StateDownloaded indicates the asset is fully staged.
	StateDownloaded State = "downloaded"
	// StateInstalling indicates staged files are being moved into place.
	StateInstalling State = "installing"
	// StateInstallFailed indicates installation failed and was rolled back.
	StateInstallFailed State = "install_failed"
	// StateInstalled indicates the update is in place; the host should restart.
	StateInstalled State = "installed"
	// StateCannotWriteOnDir indicates the application directory is read-only.
	StateCannotWriteOnDir State = "cannot_write_on_dir"
	// StateRepoNotFound indicates the release source does not know the repository.
	StateRepoNotFound State = "repo_not_found"
	// StateRepoError indicates the release source returned an error payload.
	StateRepoError State = "repo_error"
	// StateAssetNotFound indicates the release carries no asset with the target name.
	StateAssetNotFound State = "asset_not_found"
)

// AllStates returns all valid states in lifecycle order.
func AllStates() []State {
	return []State{
		StateIdle, StateFetching, StateCheckingUpdate, StateNoUpdateAvailable,
		StateUpdateAvailable, StateDownloading, StateRetrying, StateCanceled,
		StateDownloaded, StateInstalling, StateInstallFailed, StateInstalled,
		StateCannotWriteOnDir, StateRepoNotFound, StateRepoError, StateAssetNotFound,
	}
}

// Validate checks if the State is a valid value.
func (s State) Validate() error {
	for _, known := range AllStates() {
		if s == known {
			return nil
		}
	}
	if s == "" {
		return fmt.Errorf("state is required")
	}
	return fmt.Errorf("invalid state '%s'", s)
}

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition can leave this state.
// NoUpdateAvailable and UpdateAvailable are not terminal: a check may be
// repeated and an update may still be started from them.
func (s State) IsTerminal() bool {
	switch s {
	case StateCanceled, StateInstallFailed, StateInstalled,
		StateCannotWriteOnDir, StateRepoNotFound, StateRepoError, StateAssetNotFound:
		return true
	}
	return false
}

// IsBusy returns true while a download or install is running.
func (s State) IsBusy() bool {
	switch s {
	case StateDownloading, StateRetrying, StateDownloaded, StateInstalling:
		return true
	}
	return false
}

// Short returns the coarse summary of the state.
func (s State) Short() ShortState {
	switch s {
	case StateDownloading, StateRetrying, StateDownloaded, StateInstalling:
		return ShortStateUpdating
	case StateCanceled, StateInstallFailed, StateCannotWriteOnDir,
		StateRepoNotFound, StateRepoError, StateAssetNotFound:
		return ShortStateCanceled
	case StateInstalled:
		return ShortStateInstalled
	default:
		return ShortStateIdle
	}
}

// ParseState parses a string into a State.
// Returns an error if the string is not a valid state.
func ParseState(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

// ShortState is the coarse summary of a session, suitable for a status badge.
type ShortState string

const (
	// ShortStateIdle covers every state before a download starts.
	ShortStateIdle ShortState = "idle"
	// ShortStateUpdating covers download and install.
	ShortStateUpdating ShortState = "updating"
	// ShortStateCanceled covers every failed terminal state.
	ShortStateCanceled ShortState = "canceled"
	// ShortStateInstalled is reached only after a successful install.
	ShortStateInstalled ShortState = "installed"
)

// AllShortStates returns all valid short states.
func AllShortStates() []ShortState {
	return []ShortState{ShortStateIdle, ShortStateUpdating, ShortStateCanceled, ShortStateInstalled}
}

// Validate checks if the ShortState is a valid value.
func (s ShortState) Validate() error {
	switch s {
	case ShortStateIdle, ShortStateUpdating, ShortStateCanceled, ShortStateInstalled:
		return nil
	case "":
		return fmt.Errorf("short state is required")
	default:
		return fmt.Errorf("invalid short state '%s' (must be idle, updating, canceled, or installed)", s)
	}
}

// String returns the string representation of the ShortState.
func (s ShortState) String() string {
	return string(s)
}

// ParseShortState parses a string into a ShortState.
func ParseShortState(s string) (ShortState, error) {
	ss := ShortState(strings.ToLower(strings.TrimSpace(s)))
	if err := ss.Validate(); err != nil {
		return "", err
	}
	return ss, nil
}
