/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command aeroinspect manages aircraft inspection reports: it creates and
// inspects report folders, runs analysis and exports annotated photos, and
// launches the desktop editor.
//
// Usage:
//
//	aeroinspect init <dir> [name]
//	aeroinspect add <dir> <image>...
//	aeroinspect info <dir>
//	aeroinspect analyze <dir> [image]...
//	aeroinspect export <dir> [--out dir] [--pdf] [--quality n]
//	aeroinspect token set|delete|status
//	aeroinspect ui [dir]
//
// See --help for all options.
package main

import "aeroinspect/internal/crash"

func main() {
	defer crash.Recover(nil, nil)
	Execute()
}
