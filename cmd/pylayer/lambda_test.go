// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/charmbracelet/log"

	"github.com/pylayer/pylayer/internal/app/layer"
	"github.com/pylayer/pylayer/internal/config"
	"github.com/pylayer/pylayer/internal/logging"
)

type fakeBuilder struct {
	res layer.Result
	err error
}

func (f fakeBuilder) Build(context.Context, layer.Request) (layer.Result, error) {
	return f.res, f.err
}

// loggingBuilder logs through the logger found in the build context.
type loggingBuilder struct{}

func (loggingBuilder) Build(ctx context.Context, req layer.Request) (layer.Result, error) {
	log.FromContext(ctx).Info("building", "module", req.ModuleName)
	return layer.Result{LayerName: "numpy_1194_py39"}, nil
}

func TestLambdaHandler(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &logs, Format: logging.FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})

	ok := newLambdaHandler(fakeBuilder{res: layer.Result{LayerName: "numpy_1194_py39"}}, logger)
	resp, err := ok(ctx, layer.Request{ModuleName: "numpy"})
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("handler = %+v, %v", resp, err)
	}
	if resp.Payload != "New layer was successfully created with the name numpy_1194_py39" {
		t.Errorf("Payload = %q", resp.Payload)
	}

	failing := newLambdaHandler(fakeBuilder{err: &layer.Error{Kind: layer.KindMissingInput}}, logger)
	resp, err = failing(ctx, layer.Request{})
	if err != nil {
		t.Fatalf("failures must be reported in the response, got error %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.FunctionError != layer.FunctionErrorNotFound {
		t.Errorf("response = %+v, want 404", resp)
	}

	if !strings.Contains(logs.String(), `"request_id":"req-1"`) {
		t.Errorf("logs should carry the request id:\n%s", logs.String())
	}
}

func TestLambdaHandler_BuildLogsCarryRequestID(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &logs, Format: logging.FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-7"})

	if _, err := newLambdaHandler(loggingBuilder{}, logger)(ctx, layer.Request{ModuleName: "numpy"}); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if !strings.Contains(line, `"request_id":"req-7"`) {
			t.Errorf("log line without request id: %s", line)
		}
	}
	if !strings.Contains(logs.String(), `"msg":"building"`) {
		t.Errorf("build log missing:\n%s", logs.String())
	}
}

func TestLambdaHandler_PlainError(t *testing.T) {
	t.Parallel()

	h := newLambdaHandler(fakeBuilder{err: errors.New("boom")}, logging.Discard())
	resp, err := h(context.Background(), layer.Request{ModuleName: "numpy"})
	if err != nil || resp.StatusCode != http.StatusInternalServerError || resp.FunctionError != layer.FunctionErrorService {
		t.Errorf("handler = %+v, %v", resp, err)
	}
}

func TestLambdaCommand_StartsRuntime(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var started any
	env.app.StartLambda = func(h any) { started = h }

	if err := env.run("lambda"); err != nil {
		t.Fatalf("lambda failed: %v", err)
	}
	h, ok := started.(func(context.Context, layer.Request) (layer.Response, error))
	if !ok {
		t.Fatalf("StartLambda received %T", started)
	}

	resp, err := h(context.Background(), layer.Request{ModuleName: testModule})
	if err != nil || !resp.OK() {
		t.Fatalf("handler = %+v, %v", resp, err)
	}
}

func TestLambdaCommand_ConfigError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.app.Config = &staticConfig{err: errors.New("broken config")}
	if err := env.run("lambda"); err == nil || !strings.Contains(err.Error(), "broken config") {
		t.Errorf("error = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cfg := config.DefaultConfig()

	logger, err := env.app.newLogger(cfg, &globalFlags{verbose: true}, config.LogFormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("--verbose level = %v, want debug", logger.GetLevel())
	}
	logger.Debug("probe")
	if !strings.Contains(env.stderr.String(), `"msg":"probe"`) {
		t.Errorf("explicit json format not applied:\n%s", env.stderr)
	}
}
