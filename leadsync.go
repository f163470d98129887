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
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerkit/leadsync/config"
	"github.com/dealerkit/leadsync/database"
	"github.com/dealerkit/leadsync/internal/cache"
	pg_listener "github.com/dealerkit/leadsync/internal/pg-listener"
	redis_db "github.com/dealerkit/leadsync/internal/redis-db"
)

// Leadsync is the main service struct wiring the claim coordinator, the
// change feed and the ingestion queue together.
type Leadsync struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	identity   IdentityProvider
	feed       FeedSource
}

// NewLeadsync initializes the service from the loaded configuration.
func NewLeadsync(db database.IDataSource) (*Leadsync, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	identityCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)
	listener := pg_listener.NewDBListener(pg_listener.ListenerConfig{
		PgConnStr:            configuration.DataSource.Dns,
		MinReconnectInterval: time.Duration(configuration.Feed.MinReconnectDelaySec) * time.Second,
		MaxReconnectInterval: time.Duration(configuration.Feed.MaxReconnectDelaySec) * time.Second,
		PingInterval:         configuration.PingInterval(),
	})

	newLeadsync := &Leadsync{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		identity:   NewIdentityProvider(db, identityCache),
		feed:       &listenerFeed{listener: listener},
	}
	return newLeadsync, nil
}

// Datasource exposes the underlying record store, used by the HTTP layer for
// plain read-throughs.
func (l *Leadsync) Datasource() database.IDataSource {
	return l.datasource
}

// Identity exposes the identity provider for the auth middleware.
func (l *Leadsync) Identity() IdentityProvider {
	return l.identity
}
