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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/model"
)

func TestCreateAgent_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	agent := model.Agent{
		DisplayName: gofakeit.Name(),
		Email:       gofakeit.Email(),
		TokenHash:   "hash123",
	}

	mock.ExpectExec("INSERT INTO leadsync.agents").
		WithArgs(sqlmock.AnyArg(), agent.DisplayName, agent.Email, agent.TokenHash, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateAgent(context.Background(), agent)
	assert.NoError(t, err)
	assert.NotEmpty(t, created.AgentID)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Second)
}

func TestCreateAgent_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO leadsync.agents").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})

	_, err = ds.CreateAgent(context.Background(), model.Agent{Email: "dup@dealer.test"})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestGetAgentByTokenHash_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	rows := sqlmock.NewRows([]string{"agent_id", "display_name", "email", "revoked", "created_at"}).
		AddRow("agt_1", "Dana Scott", "dana@dealer.test", false, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM leadsync.agents").
		WithArgs("hash123").
		WillReturnRows(rows)

	agent, err := ds.GetAgentByTokenHash(context.Background(), "hash123")
	assert.NoError(t, err)
	assert.Equal(t, "agt_1", agent.AgentID)
	assert.Equal(t, "Dana Scott", agent.DisplayName)
}

func TestGetAgentByTokenHash_Unknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM leadsync.agents").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"agent_id", "display_name", "email", "revoked", "created_at"}))

	_, err = ds.GetAgentByTokenHash(context.Background(), "nope")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrUnauthenticated, apiErr.Code)
}
