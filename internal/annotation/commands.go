/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotation

import "aeroinspect/internal/domain"

// AddCommand appends an annotation; undo removes it again.
type AddCommand struct {
	Store *Store
	Item  *domain.Annotation
}

func (c *AddCommand) Do()           { c.Store.Add(c.Item) }
func (c *AddCommand) Undo()         { c.Store.Remove(c.Item) }
func (c *AddCommand) Label() string { return "Add " + string(c.Item.Author) + " annotation" }

// DeleteCommand removes an annotation and restores it at its original index.
type DeleteCommand struct {
	Store *Store
	Item  *domain.Annotation
	index int
}

func (c *DeleteCommand) Do() {
	if i, ok := c.Store.Remove(c.Item); ok {
		c.index = i
	}
}

func (c *DeleteCommand) Undo()         { c.Store.Insert(c.index, c.Item) }
func (c *DeleteCommand) Label() string { return "Delete " + string(c.Item.Author) + " annotation" }

// Index is the position recorded by the last Do.
func (c *DeleteCommand) Index() int { return c.index }
