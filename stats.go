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

package leadsync

import (
	"time"

	"github.com/dealerkit/leadsync/model"
)

// OverdueThreshold is how long a new_callback lead may sit without activity
// before it counts as an overdue follow-up.
const OverdueThreshold = 48 * time.Hour

// ComputeStats folds a reconciled snapshot into time-windowed counts. It is
// a pure function of the snapshot and now: same inputs, same output, no
// hidden state. Completed buckets overlap on purpose; a lead completed today
// also counts for the week and the month.
func ComputeStats(snapshot []*model.Lead, now time.Time) model.Stats {
	dayStart := startOfDay(now)
	weekStart := startOfISOWeek(now)
	monthStart := startOfMonth(now)

	var stats model.Stats
	for _, lead := range snapshot {
		switch lead.CRMStatus {
		case model.StatusNewCallback:
			stats.NewCallbacks++
			if lead.LastActivityAt.Before(now.Add(-OverdueThreshold)) {
				stats.OverdueFollowUps++
			}
		case model.StatusInProgress:
			stats.InProgress++
		}

		if lead.CompletedAt == nil {
			continue
		}
		completed := *lead.CompletedAt
		if completed.After(now) {
			continue
		}
		if !completed.Before(dayStart) {
			stats.CompletedToday++
		}
		if !completed.Before(weekStart) {
			stats.CompletedWeek++
		}
		if !completed.Before(monthStart) {
			stats.CompletedMonth++
		}
	}

	return stats
}

func startOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

// startOfISOWeek returns the most recent Monday at 00:00 local time.
func startOfISOWeek(now time.Time) time.Time {
	offset := int(now.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return startOfDay(now).AddDate(0, 0, -offset)
}

func startOfMonth(now time.Time) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
}
