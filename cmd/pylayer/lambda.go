// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pylayer/pylayer/internal/app/layer"
	"github.com/pylayer/pylayer/internal/config"
)

// layerBuilder is the part of layer.Service the handler needs.
type layerBuilder interface {
	Build(ctx context.Context, req layer.Request) (layer.Result, error)
}

// newLambdaCommand creates the `pylayer lambda` command.
func newLambdaCommand(app *App, g *globalFlags) *cobra.Command {
	var logFormat string

	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function handler",
		Long: `Start the Lambda runtime loop. Each invocation event carries
"ModuleName" and optionally "CustomLayerName"; the function returns
{StatusCode, FunctionError, Payload} and never fails the invocation itself.

Logs are JSON by default so CloudWatch can index them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := app.loadConfig(ctx, g)
			if err != nil {
				return err
			}
			logger, err := app.newLogger(cfg, g, config.LogFormat(logFormat))
			if err != nil {
				return err
			}
			svc, err := app.layerService(ctx, cfg, logger, serviceOverrides{})
			if err != nil {
				return err
			}
			logger.Info("starting lambda handler", "scratch", cfg.ResolveScratchDir())
			app.StartLambda(newLambdaHandler(svc, logger))
			return nil
		},
	}

	cmd.Flags().StringVar(&logFormat, "log-format", string(config.LogFormatJSON), "log format: text or json")
	return cmd
}

// newLambdaHandler returns the function handed to the Lambda runtime.
func newLambdaHandler(svc layerBuilder, logger *log.Logger) func(context.Context, layer.Request) (layer.Response, error) {
	return func(ctx context.Context, req layer.Request) (layer.Response, error) {
		l := logger
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			l = logger.With("request_id", lc.AwsRequestID)
		}
		res, err := svc.Build(log.WithContext(ctx, l), req)
		if err != nil {
			resp := layer.ErrorResponse(err)
			l.Error("invocation failed", "status", resp.StatusCode, "function_error", resp.FunctionError)
			return resp, nil
		}
		l.Info("invocation succeeded", "layer", res.LayerName, "version", res.Published.Version)
		return layer.SuccessResponse(res), nil
	}
}
