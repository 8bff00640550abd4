// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// docassoc associates JSDoc comments with the JavaScript syntax nodes they
// document.
//
// Usage:
//
//	docassoc extract [flags] <file|dir>...
//	docassoc serve [--port 8090]
//	docassoc watch [flags] <dir>
//	docassoc cache list|clear
//
// Settings come from the embedded defaults, an optional --config YAML file,
// DOCASSOC_* environment variables (DOCASSOC_SERVER_PORT for server.port)
// and command line flags, in increasing order of precedence.
//
// Exit codes:
//
//	0 - success
//	1 - any error
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd(newApp(os.Stdout, os.Stderr)).Execute(); err != nil {
		os.Exit(1)
	}
}
