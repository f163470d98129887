/*
Copyright 2025 Leadsync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

// Change event kinds emitted by the record store per mutated row.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// ChangeEvent is a single row-level notification from the lead table feed.
// Events for the same lead are causally ordered (an insert precedes its own
// updates) but there is no ordering guarantee across distinct leads.
type ChangeEvent struct {
	Kind string `json:"kind"`
	Lead Lead   `json:"lead"`
}

// Stats are time-windowed counts derived from a reconciled snapshot. The
// completed buckets are inclusive and overlap: a lead completed today also
// counts toward the week and the month.
type Stats struct {
	NewCallbacks     int `json:"new_callbacks"`
	InProgress       int `json:"in_progress"`
	CompletedToday   int `json:"completed_today"`
	CompletedWeek    int `json:"completed_week"`
	CompletedMonth   int `json:"completed_month"`
	OverdueFollowUps int `json:"overdue_follow_ups"`
}
