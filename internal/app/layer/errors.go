// SPDX-License-Identifier: MPL-2.0

package layer

import "net/http"

const (
	// KindMissingInput means the request did not name a module.
	KindMissingInput Kind = "MissingInput"
	// KindInvalidInput means the module name would be read by the resolver
	// as an option.
	KindInvalidInput Kind = "InvalidInput"
	// KindResolutionFailed means the resolver could not obtain the module.
	KindResolutionFailed Kind = "ResolutionFailed"
	// KindNoArchiveProduced means the resolver succeeded but left no wheel.
	KindNoArchiveProduced Kind = "NoArchiveProduced"
	// KindMalformedName means the wheel file name has no version field.
	KindMalformedName Kind = "MalformedName"
	// KindMalformedArchive means the wheel is not a readable zip archive.
	KindMalformedArchive Kind = "MalformedArchive"
	// KindWorkspaceFailed means the scratch workspace could not be prepared.
	KindWorkspaceFailed Kind = "WorkspaceFailed"
	// KindRelocationFailed means the relocated archive could not be written
	// or read back.
	KindRelocationFailed Kind = "RelocationFailed"
	// KindRuntimeUnavailable means the target Python runtime is unknown.
	KindRuntimeUnavailable Kind = "RuntimeUnavailable"
	// KindPublishFailed means the layer service rejected the layer.
	KindPublishFailed Kind = "PublishFailed"
)

const (
	// FunctionErrorNotFound tags failures caused by the requested module.
	FunctionErrorNotFound = "ResourceNotFoundException"
	// FunctionErrorService tags failures of the environment or the layer service.
	FunctionErrorService = "ServiceException"
)

type (
	// Kind classifies a failed layer build.
	Kind string

	// Error is a failed layer build. It unwraps to the component error.
	Error struct {
		Kind   Kind
		Module string
		Err    error
	}
)

// StatusCode returns the response status for the kind: 404 when the module
// could not be turned into a layer, 500 for environment and service faults.
func (k Kind) StatusCode() int {
	switch k {
	case KindMissingInput, KindInvalidInput, KindResolutionFailed, KindNoArchiveProduced,
		KindMalformedName, KindMalformedArchive:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FunctionError returns the error tag reported with the kind.
func (k Kind) FunctionError() string {
	if k.StatusCode() == http.StatusNotFound {
		return FunctionErrorNotFound
	}
	return FunctionErrorService
}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// Error implements the error interface. The text is the response payload.
func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindMissingInput:
		msg = "No argument for ModuleName was provided"
	case KindInvalidInput:
		msg = "ModuleName " + e.Module + " is not a module name or requirement"
	case KindResolutionFailed:
		msg = "pip was not able to find a module for " + e.Module
	case KindNoArchiveProduced:
		msg = "pip was not able to download a wheel file for " + e.Module
	case KindMalformedName:
		msg = "the wheel file downloaded for " + e.Module + " does not follow the wheel naming convention"
	case KindMalformedArchive:
		msg = "the wheel file downloaded for " + e.Module + " is not a usable zip archive"
	case KindWorkspaceFailed:
		msg = "could not prepare a scratch workspace for " + e.Module
	case KindRelocationFailed:
		msg = "could not write the layer archive for " + e.Module
	case KindRuntimeUnavailable:
		msg = "could not determine the target Python runtime"
	case KindPublishFailed:
		msg = "There was a problem when calling the Lambda PublishLayerVersion API"
	default:
		msg = "layer build failed for " + e.Module
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the component error.
func (e *Error) Unwrap() error { return e.Err }
