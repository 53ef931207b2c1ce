// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package shared holds the state and helpers common to the grc subcommands.
package shared

import "github.com/spf13/pflag"

// BuildInfo identifies the running binary. Release builds set it from
// ldflags in main.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"build_date"`
}

var build = BuildInfo{Version: "dev", Commit: "unknown", Date: "unknown"}

// SetBuildInfo records the identity of the running binary.
func SetBuildInfo(b BuildInfo) { build = b }

// Build returns the identity of the running binary.
func Build() BuildInfo { return build }

// Values of the persistent flags on the root command.
var globals struct {
	verbose    bool
	quiet      bool
	json       bool
	configPath string
}

// BindGlobalFlags registers the flags every subcommand understands.
func BindGlobalFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&globals.verbose, "verbose", "v", false, "Enable debug logging")
	fs.BoolVarP(&globals.quiet, "quiet", "q", false, "Only log errors")
	fs.BoolVar(&globals.json, "json", false, "Output in JSON format")
	fs.StringVar(&globals.configPath, "config", "", "Path to config file (default: ~/.config/grc/config.yaml)")
}

func GetVerbose() bool      { return globals.verbose }
func GetQuiet() bool        { return globals.quiet }
func GetJSON() bool         { return globals.json }
func GetConfigPath() string { return globals.configPath }

func SetConfigPathForTest(path string) { globals.configPath = path }
func SetJSONForTest(enabled bool)      { globals.json = enabled }
