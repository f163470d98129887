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
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func newTestCache(t *testing.T) Cache {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := newRedisCache([]string{mr.Addr()})
	assert.NoError(t, err)
	return c
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	mockCache := newTestCache(t)

	key := "agent:token:abc"
	setValue := map[string]string{"agent_id": "agt_1", "display_name": "Dana"}
	err := mockCache.Set(ctx, key, setValue, 10*time.Minute)
	assert.NoError(t, err)

	var getValue map[string]string
	err = mockCache.Get(ctx, key, &getValue)
	assert.NoError(t, err)
	assert.Equal(t, setValue, getValue)

	// A miss is not an error; the destination stays empty.
	var missValue map[string]string
	err = mockCache.Get(ctx, "nonExistentKey", &missValue)
	assert.NoError(t, err)
	assert.Empty(t, missValue)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	mockCache := newTestCache(t)

	err := mockCache.Set(ctx, "k", "v", time.Minute)
	assert.NoError(t, err)

	err = mockCache.Delete(ctx, "k")
	assert.NoError(t, err)

	var out string
	err = mockCache.Get(ctx, "k", &out)
	assert.NoError(t, err)
	assert.Empty(t, out)
}
