// SPDX-License-Identifier: Apache-2.0
package constants

const (
	APPNAME    = "saplpdp"
	APPVERSION = "0.1.0"

	ConfigFileName      = "pdp.toml"
	ConfigFileExtension = "toml"
)

const (
	EnvLogLevel           = "SAPLPDP_LOG_LEVEL"
	EnvDebug              = "SAPLPDP_DEBUG"
	EnvOtelEnabled        = "SAPLPDP_OTEL_ENABLED"
	EnvOtelEndpoint       = "SAPLPDP_OTEL_ENDPOINT"
	EnvOtelProtocol       = "SAPLPDP_OTEL_PROTOCOL"
	EnvOtelTraceExecution = "SAPLPDP_OTEL_TRACE_EXECUTION"
)
