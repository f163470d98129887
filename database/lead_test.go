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
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/model"
)

var leadTestColumns = []string{
	"lead_id", "customer_name", "phone_number", "source", "vehicle", "budget",
	"claimed", "claimed_by", "claimed_by_name", "claimed_at",
	"crm_status", "crm_stage", "last_activity_at", "completed_at",
	"meta_data", "created_at",
}

func leadRow(id string, claimed bool, claimedBy, claimedByName string, claimedAt driver.Value) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(leadTestColumns).AddRow(
		id, "Jordan Blake", "+15550100", "web_form", "2024 Outback", "45000.50",
		claimed, claimedBy, claimedByName, claimedAt,
		model.StatusNewCallback, "", now, nil,
		[]byte(`{"campaign":"spring"}`), now,
	)
}

func TestCreateLead_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	lead := &model.Lead{
		CustomerName: gofakeit.Name(),
		PhoneNumber:  gofakeit.Phone(),
		Source:       "web_form",
		Vehicle:      "2024 Outback",
		Budget:       decimal.RequireFromString("45000.50"),
	}

	mock.ExpectExec("INSERT INTO leadsync.leads").
		WithArgs(sqlmock.AnyArg(), lead.CustomerName, lead.PhoneNumber, lead.Source,
			lead.Vehicle, lead.Budget, model.StatusNewCallback, sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateLead(context.Background(), lead)
	assert.NoError(t, err)
	assert.NotEmpty(t, created.LeadID)
	assert.False(t, created.Claimed)
	assert.Equal(t, model.StatusNewCallback, created.CRMStatus)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLead_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO leadsync.leads").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})

	_, err = ds.CreateLead(context.Background(), &model.Lead{CustomerName: "X"})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestGetLeadByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM leadsync.leads").
		WithArgs("ld_1").
		WillReturnRows(leadRow("ld_1", false, "", "", nil))

	lead, err := ds.GetLeadByID(context.Background(), "ld_1")
	assert.NoError(t, err)
	assert.Equal(t, "ld_1", lead.LeadID)
	assert.False(t, lead.Claimed)
	assert.Nil(t, lead.ClaimedAt)
	assert.Equal(t, "spring", lead.MetaData["campaign"])
	assert.True(t, lead.Budget.Equal(decimal.RequireFromString("45000.50")))
}

func TestGetLeadByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM leadsync.leads").
		WithArgs("ld_missing").
		WillReturnRows(sqlmock.NewRows(leadTestColumns))

	_, err = ds.GetLeadByID(context.Background(), "ld_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestClaimLead_Acquired(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("UPDATE leadsync.leads").
		WithArgs("ld_1", "agt_1", "Dana Scott").
		WillReturnRows(leadRow("ld_1", true, "agt_1", "Dana Scott", now))

	lead, err := ds.ClaimLead(context.Background(), "ld_1", model.Caller{AgentID: "agt_1", DisplayName: "Dana Scott"})
	assert.NoError(t, err)
	assert.True(t, lead.Claimed)
	assert.Equal(t, "agt_1", lead.ClaimedBy)
	assert.Equal(t, "Dana Scott", lead.ClaimedByName)
	assert.NotNil(t, lead.ClaimedAt)
}

func TestClaimLead_Conflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	// The conditional update matches nothing; the follow-up probe finds the
	// row, so the lead was already claimed.
	mock.ExpectQuery("UPDATE leadsync.leads").
		WithArgs("ld_1", "agt_2", "Riley Chen").
		WillReturnRows(sqlmock.NewRows(leadTestColumns))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ld_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = ds.ClaimLead(context.Background(), "ld_1", model.Caller{AgentID: "agt_2", DisplayName: "Riley Chen"})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLead_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("UPDATE leadsync.leads").
		WithArgs("ld_missing", "agt_1", "Dana Scott").
		WillReturnRows(sqlmock.NewRows(leadTestColumns))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ld_missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = ds.ClaimLead(context.Background(), "ld_missing", model.Caller{AgentID: "agt_1", DisplayName: "Dana Scott"})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetAllLeads_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	rows := leadRow("ld_1", false, "", "", nil)
	mock.ExpectQuery("SELECT (.+) FROM leadsync.leads").
		WithArgs(20, 0).
		WillReturnRows(rows)

	leads, err := ds.GetAllLeads(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, "ld_1", leads[0].LeadID)
}

func TestTouchLeadActivity_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE leadsync.leads").
		WithArgs("ld_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ds.TouchLeadActivity(context.Background(), "ld_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}
