// SPDX-License-Identifier: MPL-2.0

package layer

import (
	"errors"
	"net/http"
)

type (
	// Request is the invocation input. Field names match the event keys.
	Request struct {
		ModuleName      string `json:"ModuleName" toml:"ModuleName"`
		CustomLayerName string `json:"CustomLayerName,omitempty" toml:"CustomLayerName,omitempty"`
	}

	// Response is the invocation result.
	Response struct {
		StatusCode      int    `json:"StatusCode" toml:"StatusCode"`
		FunctionError   string `json:"FunctionError,omitempty" toml:"FunctionError,omitempty"`
		Payload         string `json:"Payload" toml:"Payload"`
		LayerVersionArn string `json:"LayerVersionArn,omitempty" toml:"LayerVersionArn,omitempty"`
		Version         int64  `json:"Version,omitempty" toml:"Version,omitempty"`
	}
)

// successPayload prefixes the layer name in a successful response.
const successPayload = "New layer was successfully created with the name "

// OK reports whether the response describes a published layer.
func (r Response) OK() bool { return r.StatusCode == http.StatusOK }

// SuccessResponse builds the response for a published layer.
func SuccessResponse(res Result) Response {
	return Response{
		StatusCode:      http.StatusOK,
		Payload:         successPayload + res.LayerName,
		LayerVersionArn: res.Published.LayerVersionArn,
		Version:         res.Published.Version,
	}
}

// ErrorResponse builds the response for a failed build. Errors that are not
// an *Error are reported as service exceptions.
func ErrorResponse(err error) Response {
	var buildErr *Error
	if !errors.As(err, &buildErr) {
		return Response{
			StatusCode:    http.StatusInternalServerError,
			FunctionError: FunctionErrorService,
			Payload:       err.Error(),
		}
	}
	return Response{
		StatusCode:    buildErr.Kind.StatusCode(),
		FunctionError: buildErr.Kind.FunctionError(),
		Payload:       buildErr.Error(),
	}
}
