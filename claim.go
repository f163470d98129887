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
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/model"
)

// claimTimeout bounds the single store round-trip per claim request. A
// timeout leaves the outcome unknown; the caller is told to re-query rather
// than retry blindly.
const claimTimeout = 5 * time.Second

// followUpDelay schedules a reminder check after a successful claim.
const followUpDelay = 48 * time.Hour

// ClaimLead attempts to exclusively acquire a lead for the caller. The whole
// decision rides on one conditional update inside the record store: among any
// number of concurrent attempts on the same lead exactly one returns the
// claimed lead, every other caller gets a conflict. Conflicts are a business
// outcome, not a fault, and are never retried here.
func (l *Leadsync) ClaimLead(ctx context.Context, leadID string, credential string) (*model.Lead, error) {
	caller, err := l.identity.ResolveCaller(ctx, credential)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, claimTimeout)
	defer cancel()

	lead, err := l.datasource.ClaimLead(ctx, leadID, caller)
	if err != nil {
		if ctx.Err() != nil {
			// The write may or may not have landed. Surface an unknown
			// outcome instead of guessing either way.
			return nil, apierror.NewAPIError(apierror.ErrInternalServer,
				"Claim outcome unknown, re-query the lead state", errors.Wrap(ctx.Err(), "claim timed out"))
		}
		return nil, err
	}

	logrus.Infof("lead %s claimed by %s (%s)", lead.LeadID, caller.DisplayName, caller.AgentID)

	// Successful acquisition: the store's trigger has already emitted the
	// change event for every subscriber. Only the follow-up reminder is
	// queued here, and a queue failure must not undo a committed claim.
	if l.queue != nil {
		if err := l.queue.queueFollowUpReminder(lead.LeadID, time.Now().Add(followUpDelay)); err != nil {
			logrus.Warnf("failed to enqueue follow-up reminder for %s: %v", lead.LeadID, err)
		}
	}

	return lead, nil
}
