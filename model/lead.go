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

import (
	"time"

	"github.com/shopspring/decimal"
)

// CRM status values a lead moves through. A lead enters the pipeline as
// StatusNewCallback; the claim subsystem never changes status, only the CRM
// workflow does.
const (
	StatusNewCallback = "new_callback"
	StatusInProgress  = "in_progress"
	StatusCompleted   = "completed"
	StatusLost        = "lost"
)

// CRM stage values. Empty string means no stage has been set yet.
const (
	StageNegotiation = "negotiation"
	StageTestDrive   = "test_drive"
	StageAgreement   = "agreement"
)

// Lead is the unit of contention in the intake pipeline. The claim fields
// (Claimed, ClaimedBy, ClaimedByName, ClaimedAt) are only ever written by the
// claim coordinator through a single conditional update; Claimed is true iff
// ClaimedBy is non-empty, and once true it never reverts.
type Lead struct {
	ID             int64                  `json:"-"`
	LeadID         string                 `json:"lead_id"`
	CustomerName   string                 `json:"customer_name"`
	PhoneNumber    string                 `json:"phone_number"`
	Source         string                 `json:"source"`
	Vehicle        string                 `json:"vehicle"`
	Budget         decimal.Decimal        `json:"budget"`
	Claimed        bool                   `json:"claimed"`
	ClaimedBy      string                 `json:"claimed_by,omitempty"`
	ClaimedByName  string                 `json:"claimed_by_name,omitempty"`
	ClaimedAt      *time.Time             `json:"claimed_at,omitempty"`
	CRMStatus      string                 `json:"crm_status"`
	CRMStage       string                 `json:"crm_stage,omitempty"`
	LastActivityAt time.Time              `json:"last_activity_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Caller is a resolved agent identity attached to a claim request.
type Caller struct {
	AgentID     string `json:"agent_id"`
	DisplayName string `json:"display_name"`
}

// Agent is a dealership sales agent able to claim leads.
type Agent struct {
	ID          int64     `json:"-"`
	AgentID     string    `json:"agent_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	TokenHash   string    `json:"-"`
	Revoked     bool      `json:"revoked"`
	CreatedAt   time.Time `json:"created_at"`
}
