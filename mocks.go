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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dealerkit/leadsync/database"
	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/model"
)

// NewTestLeadsync builds a service around an arbitrary record store with no
// queue, cache or feed attached. Used by handler tests.
func NewTestLeadsync(db database.IDataSource) *Leadsync {
	return &Leadsync{
		datasource: db,
		identity:   NewIdentityProvider(db, nil),
	}
}

// MockDataSource is an in-memory record store used in tests. Its ClaimLead
// mirrors the real conditional update: the unclaimed check and the mutation
// happen under one lock, so concurrent claim attempts resolve to exactly one
// winner just like they do in the database.
type MockDataSource struct {
	mu     sync.Mutex
	leads  map[string]*model.Lead
	agents map[string]model.Agent
}

func NewMockDataSource() *MockDataSource {
	return &MockDataSource{
		leads:  make(map[string]*model.Lead),
		agents: make(map[string]model.Agent),
	}
}

// SeedAgent registers an agent resolvable by the hash of token.
func (m *MockDataSource) SeedAgent(token, agentID, displayName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[HashToken(token)] = model.Agent{
		AgentID:     agentID,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
}

// RemoveAgent deletes an agent by id.
func (m *MockDataSource) RemoveAgent(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, agent := range m.agents {
		if agent.AgentID == agentID {
			delete(m.agents, hash)
		}
	}
}

// SeedLead stores a copy of lead directly, bypassing ingestion defaults.
func (m *MockDataSource) SeedLead(lead model.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.LeadID] = &lead
}

func copyLead(lead *model.Lead) *model.Lead {
	c := *lead
	return &c
}

func (m *MockDataSource) CreateLead(_ context.Context, lead *model.Lead) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lead.LeadID == "" {
		lead.LeadID = model.GenerateUUIDWithSuffix("ld")
	}
	if _, exists := m.leads[lead.LeadID]; exists {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Lead with this ID already exists", nil)
	}
	lead.CreatedAt = time.Now()
	lead.LastActivityAt = lead.CreatedAt
	lead.CRMStatus = model.StatusNewCallback
	lead.Claimed = false
	m.leads[lead.LeadID] = copyLead(lead)
	return copyLead(lead), nil
}

func (m *MockDataSource) GetLeadByID(_ context.Context, id string) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Lead with ID '%s' not found", id), nil)
	}
	return copyLead(lead), nil
}

func (m *MockDataSource) GetAllLeads(_ context.Context, limit, offset int) ([]*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*model.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		all = append(all, copyLead(lead))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].LeadID < all[j].LeadID
	})

	if offset >= len(all) {
		return []*model.Lead{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockDataSource) ClaimLead(_ context.Context, id string, caller model.Caller) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Lead with ID '%s' not found", id), nil)
	}
	if lead.Claimed {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Lead already claimed", nil)
	}

	now := time.Now()
	lead.Claimed = true
	lead.ClaimedBy = caller.AgentID
	lead.ClaimedByName = caller.DisplayName
	lead.ClaimedAt = &now
	lead.LastActivityAt = now
	return copyLead(lead), nil
}

func (m *MockDataSource) TouchLeadActivity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Lead with ID '%s' not found", id), nil)
	}
	lead.LastActivityAt = time.Now()
	return nil
}

func (m *MockDataSource) CreateAgent(_ context.Context, agent model.Agent) (model.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent.AgentID = model.GenerateUUIDWithSuffix("agt")
	agent.CreatedAt = time.Now()
	m.agents[agent.TokenHash] = agent
	return agent, nil
}

func (m *MockDataSource) GetAgentByTokenHash(_ context.Context, tokenHash string) (*model.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[tokenHash]
	if !ok || agent.Revoked {
		return nil, apierror.NewAPIError(apierror.ErrUnauthenticated, "Invalid or revoked credential", nil)
	}
	return &agent, nil
}
