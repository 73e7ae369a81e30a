// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package definitions holds the constants shared by the traffic bot and the classifier service.
package definitions

const (
	// LogKeyMsg represents the message content in log entries.
	LogKeyMsg = "msg"

	// LogKeyError represents error information in log entries.
	LogKeyError = "error"

	// LogKeyInstance represents instance identification in log entries.
	LogKeyInstance = "instance"

	// LogKeySource tags periodic summaries with the component that produced them.
	LogKeySource = "source"

	// LogKeyRunID identifies one traffic engine run.
	LogKeyRunID = "run_id"

	// LogKeyMode is the traffic mode of a run.
	LogKeyMode = "mode"

	// LogKeyState is the engine lifecycle state.
	LogKeyState = "state"

	// LogKeyComponent names the goroutine a message originates from.
	LogKeyComponent = "component"

	// LogKeyWorker is the consumer worker index.
	LogKeyWorker = "worker"

	// LogKeyClientIP is the remote address of an HTTP client.
	LogKeyClientIP = "client_ip"

	// LogKeyAddress is a generated or classified IP address.
	LogKeyAddress = "ip"
)

const (
	// LogLevelNone disables logging.
	LogLevelNone = iota

	// LogLevelError logs errors only.
	LogLevelError

	// LogLevelWarn logs warnings and errors.
	LogLevelWarn

	// LogLevelInfo is the default level.
	LogLevelInfo

	// LogLevelDebug logs everything.
	LogLevelDebug
)

const (
	// SourceBot is the fixed label of the traffic bot's periodic summaries.
	SourceBot = "bot"

	// SourceClassifier labels log lines of the classifier service.
	SourceClassifier = "classifier"
)

const (
	// ActionBlock is returned by the classifier for malicious-looking addresses.
	ActionBlock = "block"

	// ActionAllow is returned by the classifier for all other addresses.
	ActionAllow = "allow"
)

const (
	// HeaderRequestID carries a unique id per generated request.
	HeaderRequestID = "X-Request-ID"

	// HeaderRunID carries the id of the engine run that produced a request.
	HeaderRunID = "X-Run-ID"

	// MIMEApplicationJSON is the content type of every traffic request.
	MIMEApplicationJSON = "application/json"
)

const (
	// ColorAuto enables colored logs when stdout is a terminal.
	ColorAuto = "auto"

	// ColorAlways forces colored logs.
	ColorAlways = "always"

	// ColorNever disables colored logs.
	ColorNever = "never"
)
