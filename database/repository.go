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

package database

import (
	"context"

	"github.com/dealerkit/leadsync/model"
)

// IDataSource is the record store surface consumed by the service layer.
type IDataSource interface {
	lead
	agent
}

// lead defines the lead table operations. ClaimLead is the single conditional
// write the claim coordinator relies on for mutual exclusion; it must apply
// atomically and report whether it matched an unclaimed row.
type lead interface {
	CreateLead(ctx context.Context, lead *model.Lead) (*model.Lead, error)
	GetLeadByID(ctx context.Context, id string) (*model.Lead, error)
	GetAllLeads(ctx context.Context, limit, offset int) ([]*model.Lead, error)
	ClaimLead(ctx context.Context, id string, caller model.Caller) (*model.Lead, error)
	TouchLeadActivity(ctx context.Context, id string) error
}

// agent defines operations backing the identity provider.
type agent interface {
	CreateAgent(ctx context.Context, agent model.Agent) (model.Agent, error)
	GetAgentByTokenHash(ctx context.Context, tokenHash string) (*model.Agent, error)
}
