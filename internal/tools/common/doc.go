// Package common carries the helpers every tool package leans on: argument
// extraction from MCP requests and the instrumented handler wrapper that
// records metrics, spans and audit entries around each tool invocation.
package common
