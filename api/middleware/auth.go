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

	"github.com/gin-gonic/gin"

	"github.com/dealerkit/leadsync"
)

// TokenHeader carries the agent credential on every authenticated request.
const TokenHeader = "X-Leadsync-Token"

// CallerKey is where the resolved caller is stored on the gin context.
const CallerKey = "caller"

// TokenAuthMiddleware resolves the request credential to an agent before any
// handler runs. The raw token never goes further than this middleware; the
// handlers see the resolved caller.
func TokenAuthMiddleware(identity leadsync.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing credential"})
			return
		}

		caller, err := identity.ResolveCaller(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or revoked credential"})
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}
