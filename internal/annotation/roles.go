/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotation

import "aeroinspect/internal/domain"

// CanEdit reports whether a user acting as active may select, move or delete
// an annotation by author. AI marks are never editable; a dual-role user may
// edit both inspector and verifier marks.
func CanEdit(author, active domain.Author, dualRole bool) bool {
	if author == domain.AI {
		return false
	}
	if author == active {
		return true
	}
	return dualRole && isHuman(author)
}

// Nestable reports whether a new mark by active may be drawn concentric with an
// existing mark by author, i.e. a verifier answering an inspector or vice versa.
func Nestable(author, active domain.Author) bool {
	return (author == domain.Inspector && active == domain.Verifier) ||
		(author == domain.Verifier && active == domain.Inspector)
}

func isHuman(a domain.Author) bool { return a == domain.Inspector || a == domain.Verifier }
