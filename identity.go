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
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dealerkit/leadsync/database"
	"github.com/dealerkit/leadsync/internal/apierror"
	"github.com/dealerkit/leadsync/internal/cache"
	"github.com/dealerkit/leadsync/model"
)

// IdentityProvider resolves a raw request credential to an agent identity.
type IdentityProvider interface {
	ResolveCaller(ctx context.Context, credential string) (model.Caller, error)
}

const identityCacheTTL = 5 * time.Minute

type identityProvider struct {
	datasource database.IDataSource
	cache      cache.Cache
}

// NewIdentityProvider returns an IdentityProvider backed by the agents table,
// with resolved callers cached per token hash.
func NewIdentityProvider(db database.IDataSource, ca cache.Cache) IdentityProvider {
	return &identityProvider{datasource: db, cache: ca}
}

// HashToken derives the stored lookup key for a raw credential. Tokens are
// never persisted or cached in clear text.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (p *identityProvider) ResolveCaller(ctx context.Context, credential string) (model.Caller, error) {
	if credential == "" {
		return model.Caller{}, apierror.NewAPIError(apierror.ErrUnauthenticated, "Missing credential", nil)
	}

	tokenHash := HashToken(credential)
	cacheKey := "agent:token:" + tokenHash

	if p.cache != nil {
		var cached model.Caller
		if err := p.cache.Get(ctx, cacheKey, &cached); err == nil && cached.AgentID != "" {
			return cached, nil
		}
	}

	agent, err := p.datasource.GetAgentByTokenHash(ctx, tokenHash)
	if err != nil {
		return model.Caller{}, err
	}

	caller := model.Caller{AgentID: agent.AgentID, DisplayName: agent.DisplayName}

	if p.cache != nil {
		_ = p.cache.Set(ctx, cacheKey, caller, identityCacheTTL)
	}

	return caller, nil
}
