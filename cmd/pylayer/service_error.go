// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/pylayer/pylayer/internal/app/layer"
	"github.com/pylayer/pylayer/internal/issue"
	"github.com/pylayer/pylayer/internal/publish"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID, StyledMessage: styledMessage}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// issueForError picks the catalog entry explaining a failed layer build.
func issueForError(err error) issue.Id {
	var buildErr *layer.Error
	if !errors.As(err, &buildErr) {
		return 0
	}
	switch buildErr.Kind {
	case layer.KindResolutionFailed:
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return issue.ResolverNotFoundId
		}
		return issue.ModuleNotFoundId
	case layer.KindNoArchiveProduced:
		return issue.NoWheelId
	case layer.KindMalformedName, layer.KindMalformedArchive:
		return issue.MalformedWheelId
	case layer.KindRuntimeUnavailable:
		return issue.PythonNotFoundId
	case layer.KindWorkspaceFailed, layer.KindRelocationFailed:
		return issue.PermissionDeniedId
	case layer.KindPublishFailed:
		if errors.Is(err, publish.ErrNoStagingBucket) {
			return issue.ArchiveTooLargeId
		}
		return issue.PublishFailedId
	default:
		return 0
	}
}

// renderServiceError prints any styled message, then the issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, logger *log.Logger) {
	if svcErr == nil {
		return
	}
	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}
	if svcErr.IssueID == 0 {
		return
	}
	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			logger.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}
