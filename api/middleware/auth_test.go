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
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dealerkit/leadsync"
	"github.com/dealerkit/leadsync/model"
)

func authTestRouter(ds *leadsync.MockDataSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TokenAuthMiddleware(leadsync.NewTestLeadsync(ds).Identity()))
	r.GET("/whoami", func(c *gin.Context) {
		caller := c.MustGet(CallerKey).(model.Caller)
		c.JSON(http.StatusOK, caller)
	})
	return r
}

func TestTokenAuthMiddleware(t *testing.T) {
	ds := leadsync.NewMockDataSource()
	ds.SeedAgent("token-a", "agt_a", "Dana Scott")
	router := authTestRouter(ds)

	tests := []struct {
		name         string
		token        string
		expectedCode int
	}{
		{name: "valid token", token: "token-a", expectedCode: http.StatusOK},
		{name: "missing token", token: "", expectedCode: http.StatusUnauthorized},
		{name: "unknown token", token: "bogus", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.token != "" {
				req.Header.Set(TokenHeader, tt.token)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}
