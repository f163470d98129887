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

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dealerkit/leadsync"
	model2 "github.com/dealerkit/leadsync/api/model"
	"github.com/dealerkit/leadsync/api/middleware"
	"github.com/dealerkit/leadsync/config"
	"github.com/dealerkit/leadsync/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(resp.Body).Decode(&s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func setupRouter() (*gin.Engine, *leadsync.MockDataSource) {
	config.MockConfig(&config.Configuration{
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
		DataSource: config.DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/leadsync?sslmode=disable"},
	})
	ds := leadsync.NewMockDataSource()
	router := NewAPI(leadsync.NewTestLeadsync(ds)).Router()
	return router, ds
}

func seedLead(ds *leadsync.MockDataSource, id string) {
	now := time.Now()
	ds.SeedLead(model.Lead{
		LeadID:         id,
		CustomerName:   "Morgan Hale",
		PhoneNumber:    "+15550142",
		Source:         "web_form",
		Vehicle:        "2024 Crosstrek",
		CRMStatus:      model.StatusNewCallback,
		LastActivityAt: now,
		CreatedAt:      now,
	})
}

func claimBody(t *testing.T, leadID string) io.Reader {
	t.Helper()
	payload, err := json.Marshal(model2.ClaimLead{LeadID: leadID})
	assert.NoError(t, err)
	return bytes.NewBuffer(payload)
}

func TestClaimLeadEndpoint(t *testing.T) {
	router, ds := setupRouter()
	ds.SeedAgent("token-a", "agt_a", "Dana Scott")
	seedLead(ds, "ld_1")

	var response model.Lead
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  claimBody(t, "ld_1"),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/leads/claim",
		Header:   map[string]string{middleware.TokenHeader: "token-a"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, response.Claimed)
	assert.Equal(t, "agt_a", response.ClaimedBy)
}

func TestClaimLeadEndpoint_Conflict(t *testing.T) {
	router, ds := setupRouter()
	ds.SeedAgent("token-a", "agt_a", "Dana Scott")
	ds.SeedAgent("token-b", "agt_b", "Riley Chen")
	seedLead(ds, "ld_1")

	resp, err := SetUpTestRequest(TestRequest{
		Payload: claimBody(t, "ld_1"),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/leads/claim",
		Header:  map[string]string{middleware.TokenHeader: "token-a"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var response map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{
		Payload:  claimBody(t, "ld_1"),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/leads/claim",
		Header:   map[string]string{middleware.TokenHeader: "token-b"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "Lead already claimed", response["error"])
}

func TestClaimLeadEndpoint_ConcurrentAgents(t *testing.T) {
	router, ds := setupRouter()
	ds.SeedAgent("token-a", "agt_a", "Dana Scott")
	ds.SeedAgent("token-b", "agt_b", "Riley Chen")
	seedLead(ds, "ld_1")

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for _, token := range []string{"token-a", "token-b"} {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp, err := SetUpTestRequest(TestRequest{
				Payload: claimBody(t, "ld_1"),
				Router:  router,
				Method:  http.MethodPost,
				Route:   "/leads/claim",
				Header:  map[string]string{middleware.TokenHeader: token},
			})
			assert.NoError(t, err)
			codes <- resp.Code
		}(token)
	}
	wg.Wait()
	close(codes)

	got := []int{}
	for code := range codes {
		got = append(got, code)
	}
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, got)
}

func TestClaimLeadEndpoint_NotFound(t *testing.T) {
	router, ds := setupRouter()
	ds.SeedAgent("token-a", "agt_a", "Dana Scott")

	resp, err := SetUpTestRequest(TestRequest{
		Payload: claimBody(t, "ld_missing"),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/leads/claim",
		Header:  map[string]string{middleware.TokenHeader: "token-a"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestClaimLeadEndpoint_Unauthorized(t *testing.T) {
	router, ds := setupRouter()
	seedLead(ds, "ld_1")

	tests := []struct {
		name   string
		header map[string]string
	}{
		{name: "missing token", header: nil},
		{name: "unknown token", header: map[string]string{middleware.TokenHeader: "bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := SetUpTestRequest(TestRequest{
				Payload: claimBody(t, "ld_1"),
				Router:  router,
				Method:  http.MethodPost,
				Route:   "/leads/claim",
				Header:  tt.header,
			})
			assert.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
		})
	}
}

func TestClaimLeadEndpoint_MissingLeadID(t *testing.T) {
	router, ds := setupRouter()
	ds.SeedAgent("token-a", "agt_a", "Dana Scott")

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{}`),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/leads/claim",
		Header:  map[string]string{middleware.TokenHeader: "token-a"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestQueueLeadEndpoint_InvalidPayload(t *testing.T) {
	router, _ := setupRouter()

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{"customer_name": "Morgan Hale"}`),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/leads",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetLeadEndpoint(t *testing.T) {
	router, ds := setupRouter()
	seedLead(ds, "ld_1")

	var response model.Lead
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/leads/ld_1",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ld_1", response.LeadID)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/leads/ld_missing",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetAllLeadsEndpoint(t *testing.T) {
	router, ds := setupRouter()
	seedLead(ds, "ld_1")
	seedLead(ds, "ld_2")
	seedLead(ds, "ld_3")

	var response []model.Lead
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/leads?limit=2",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 2)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/leads?limit=nope",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetLeadStatsEndpoint(t *testing.T) {
	router, ds := setupRouter()
	seedLead(ds, "ld_1")
	seedLead(ds, "ld_2")

	var response model.Stats
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/leads/stats",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, response.NewCallbacks)
}
