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
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/model"
)

// CreateAgent registers a sales agent able to claim leads.
func (d Datasource) CreateAgent(ctx context.Context, agent model.Agent) (model.Agent, error) {
	agent.AgentID = model.GenerateUUIDWithSuffix("agt")
	agent.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO leadsync.agents (agent_id, display_name, email, token_hash, revoked, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
	`, agent.AgentID, agent.DisplayName, agent.Email, agent.TokenHash, agent.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return model.Agent{}, apierror.NewAPIError(apierror.ErrConflict, "Agent with this email or token already exists", err)
		}
		return model.Agent{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create agent", err)
	}

	return agent, nil
}

// GetAgentByTokenHash resolves a credential to an agent. Revoked agents are
// treated the same as unknown tokens.
func (d Datasource) GetAgentByTokenHash(ctx context.Context, tokenHash string) (*model.Agent, error) {
	agent := model.Agent{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT agent_id, display_name, email, revoked, created_at
		FROM leadsync.agents
		WHERE token_hash = $1 AND revoked = false
	`, tokenHash)

	err := row.Scan(&agent.AgentID, &agent.DisplayName, &agent.Email, &agent.Revoked, &agent.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrUnauthenticated, "Invalid or revoked credential", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve agent", err)
	}

	return &agent, nil
}
