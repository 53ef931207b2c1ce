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

/*
Package secrets resolves credential references found in configuration.

A reference names where a secret lives instead of holding the secret:

	${GRC_API_TOKEN}          environment variable (legacy syntax)
	env:GRC_API_TOKEN         environment variable
	file:/run/secrets/grc     file contents, trailing whitespace trimmed
	keychain:grc-api-token    OS keychain entry (macOS Keychain, Secret Service, Credential Manager)

Any other string is returned unchanged, so plain tokens keep working.

	reg := secrets.DefaultRegistry()
	token, err := reg.Resolve(ctx, cfg.Auth.Token)

Errors never include the resolved value or file contents.
*/
package secrets
