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
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/model"
)

const leadColumns = `
	lead_id, customer_name, phone_number, source, vehicle, budget,
	claimed, COALESCE(claimed_by, ''), COALESCE(claimed_by_name, ''), claimed_at,
	crm_status, COALESCE(crm_stage, ''), last_activity_at, completed_at,
	meta_data, created_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*model.Lead, error) {
	lead := &model.Lead{}
	var claimedAt, completedAt sql.NullTime
	var metaDataJSON []byte

	err := row.Scan(
		&lead.LeadID, &lead.CustomerName, &lead.PhoneNumber, &lead.Source,
		&lead.Vehicle, &lead.Budget, &lead.Claimed, &lead.ClaimedBy,
		&lead.ClaimedByName, &claimedAt, &lead.CRMStatus, &lead.CRMStage,
		&lead.LastActivityAt, &completedAt, &metaDataJSON, &lead.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if claimedAt.Valid {
		lead.ClaimedAt = &claimedAt.Time
	}
	if completedAt.Valid {
		lead.CompletedAt = &completedAt.Time
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &lead.MetaData); err != nil {
			return nil, err
		}
	}

	return lead, nil
}

// CreateLead inserts a new unclaimed lead. New leads always enter the
// pipeline as new_callback.
func (d Datasource) CreateLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	metaDataJSON, err := json.Marshal(lead.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if lead.LeadID == "" {
		lead.LeadID = model.GenerateUUIDWithSuffix("ld")
	}
	lead.CreatedAt = time.Now()
	lead.LastActivityAt = lead.CreatedAt
	lead.CRMStatus = model.StatusNewCallback
	lead.Claimed = false

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO leadsync.leads
			(lead_id, customer_name, phone_number, source, vehicle, budget,
			 claimed, crm_status, last_activity_at, meta_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $9, $10)
	`, lead.LeadID, lead.CustomerName, lead.PhoneNumber, lead.Source, lead.Vehicle,
		lead.Budget, lead.CRMStatus, lead.LastActivityAt, metaDataJSON, lead.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, "Lead with this ID already exists", err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create lead", err)
	}

	return lead, nil
}

func (d Datasource) GetLeadByID(ctx context.Context, id string) (*model.Lead, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leadsync.leads
		WHERE lead_id = $1
	`, id)

	lead, err := scanLead(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Lead with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve lead", err)
	}

	return lead, nil
}

func (d Datasource) GetAllLeads(ctx context.Context, limit, offset int) ([]*model.Lead, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM leadsync.leads
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve leads", err)
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan lead data", err)
		}
		leads = append(leads, lead)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over leads", err)
	}

	return leads, nil
}

// ClaimLead atomically acquires an unclaimed lead for the caller. The claimed
// predicate is part of the UPDATE itself, so two racing callers resolve
// inside the database: exactly one matches the row, the other sees no rows.
// There is deliberately no read before the write.
func (d Datasource) ClaimLead(ctx context.Context, id string, caller model.Caller) (*model.Lead, error) {
	row := d.Conn.QueryRowContext(ctx, `
		UPDATE leadsync.leads
		SET claimed = true,
		    claimed_by = $2,
		    claimed_by_name = $3,
		    claimed_at = NOW(),
		    last_activity_at = NOW()
		WHERE lead_id = $1 AND claimed = false
		RETURNING `+leadColumns+`
	`, id, caller.AgentID, caller.DisplayName)

	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if err != sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim lead", err)
	}

	// Zero rows matched: the lead is either already claimed or does not
	// exist. This probe runs after the write and only disambiguates the
	// error; it never influences the claim outcome.
	var exists bool
	err = d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM leadsync.leads WHERE lead_id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to verify lead state", err)
	}

	if !exists {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Lead with ID '%s' not found", id), nil)
	}
	return nil, apierror.NewAPIError(apierror.ErrConflict, "Lead already claimed", nil)
}

// TouchLeadActivity bumps last_activity_at, used by follow-up workers.
func (d Datasource) TouchLeadActivity(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE leadsync.leads
		SET last_activity_at = NOW()
		WHERE lead_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update lead activity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Lead with ID '%s' not found", id), nil)
	}

	return nil
}
