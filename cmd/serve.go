// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"

	"github.com/binaek/cling"

	"github.com/sentrie-sh/saplpdp/constants"
	"github.com/sentrie-sh/saplpdp/httpapi"
	"github.com/sentrie-sh/saplpdp/otelsetup"
)

func addServeCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("serve", serveCmd).
			WithFlag(cling.
				NewIntCmdInput("port").
				WithDefault(8443).
				WithDescription("Port to listen on").
				AsFlag(),
			).
			WithFlag(cling.
				NewStringCmdInput("config-location").
				WithDefault("./").
				WithDescription("PDP configuration directory to serve").
				AsFlag(),
			).
			WithFlag(cling.
				NewCmdSliceInput[string]("listen").
				WithDefault([]string{"local"}).
				WithDescription("Address(es) to listen on").
				AsFlag(),
			).
			WithFlag(
				cling.NewBoolCmdInput("otel-enabled").
					WithDefault(false).
					WithDescription("Enable OpenTelemetry tracing").
					AsFlag().
					FromEnv([]string{constants.EnvOtelEnabled}),
			).
			WithFlag(
				cling.NewStringCmdInput("otel-endpoint").
					WithDefault("http://localhost:4317").
					WithDescription("OpenTelemetry endpoint to send traces to").
					AsFlag().
					FromEnv([]string{constants.EnvOtelEndpoint}),
			).
			WithFlag(
				cling.NewStringCmdInput("otel-protocol").
					WithDefault("grpc").
					WithValidator(cling.NewEnumValidator("http", "grpc")).
					WithDescription("OpenTelemetry protocol. Allowed values: http, grpc.").
					AsFlag().
					FromEnv([]string{constants.EnvOtelProtocol}),
			),
	)
}

type serveCmdArgs struct {
	Port           int      `cling-name:"port"`
	ConfigLocation string   `cling-name:"config-location"`
	Listen         []string `cling-name:"listen"`
	OtelEnabled    bool     `cling-name:"otel-enabled"`
	OtelEndpoint   string   `cling-name:"otel-endpoint"`
	OtelProtocol   string   `cling-name:"otel-protocol"`
}

func serveCmd(ctx context.Context, args []string) error {
	input := serveCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	instance, cc, err := buildPDP(ctx, input.ConfigLocation)
	if err != nil {
		return err
	}

	var otelCleanup otelsetup.ShutdownFn
	otelConfig := otelsetup.Config{
		Enabled:        input.OtelEnabled,
		Endpoint:       input.OtelEndpoint,
		Protocol:       input.OtelProtocol,
		ServiceName:    constants.APPNAME,
		ServiceVersion: constants.APPVERSION,
		ConfigName:     input.ConfigLocation,
	}
	if otelConfig.Enabled {
		otelCleanup, err = otelsetup.InitProvider(ctx, otelConfig)
		if err != nil {
			return err
		}
		defer func() {
			if otelCleanup != nil {
				_ = otelCleanup(context.WithoutCancel(ctx))
			}
		}()
	}

	server := httpapi.New(instance, cc)
	if err := server.Setup(ctx, input.Port, input.Listen); err != nil {
		return err
	}

	go server.StartServer(ctx)

	<-ctx.Done()

	return server.StopServer(ctx)
}
