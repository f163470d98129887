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
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dealerkit/leadsync/config"
	redis_db "github.com/dealerkit/leadsync/internal/redis-db"
	"github.com/dealerkit/leadsync/model"
)

// Queue carries lead intake off the request path. Forms and phone-bank
// imports enqueue here; workers record the row, and the insert trigger fans
// the lead out to every subscribed viewer.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// LeadIntakePayload is the task body for an ingestion task.
type LeadIntakePayload struct {
	Data model.Lead
}

// FollowUpPayload is the task body for a claim follow-up reminder.
type FollowUpPayload struct {
	LeadID string `json:"lead_id"`
}

func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Enqueue queues a new lead for ingestion. Leads are sharded across the
// ingestion queues by lead id so a hot intake source cannot starve others.
func (q *Queue) Enqueue(ctx context.Context, lead *model.Lead) error {
	payload, err := json.Marshal(LeadIntakePayload{Data: *lead})
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, q.intakeTask(lead, payload), asynq.MaxRetry(5))
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued lead: %+v", lead.LeadID)

	return nil
}

func (q *Queue) intakeTask(lead *model.Lead, payload []byte) *asynq.Task {
	cfg, err := config.Fetch()
	if err != nil {
		log.Println(err)
		return nil
	}
	queueIndex := hashLeadID(lead.LeadID, cfg.Queue.NumberOfQueues)
	queueName := fmt.Sprintf("%s_%d", cfg.Queue.IngestionQueue, queueIndex)

	taskOptions := []asynq.Option{
		asynq.TaskID(lead.LeadID),
		asynq.Queue(queueName),
	}
	return asynq.NewTask(queueName, payload, taskOptions...)
}

// queueFollowUpReminder schedules a reminder check for a claimed lead.
func (q *Queue) queueFollowUpReminder(leadID string, processAt time.Time) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(FollowUpPayload{LeadID: leadID})
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID("follow-up:" + leadID),
		asynq.Queue(cfg.Queue.FollowUpQueue),
		asynq.ProcessAt(processAt),
	}
	task := asynq.NewTask(cfg.Queue.FollowUpQueue, payload, taskOptions...)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued follow-up reminder: %s", leadID)
	return nil
}

func hashLeadID(id string, numQueues int) int {
	if numQueues <= 1 {
		return 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32())%numQueues + 1
}

// RecordLead persists a lead row; used by the intake workers. The insert
// fires the change feed trigger, which is what actually notifies viewers.
func (l *Leadsync) RecordLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	return l.datasource.CreateLead(ctx, lead)
}

// QueueLead validates nothing beyond marshalling; the worker path owns
// persistence failures and retries.
func (l *Leadsync) QueueLead(ctx context.Context, lead *model.Lead) error {
	lead.LeadID = model.GenerateUUIDWithSuffix("ld")
	return l.queue.Enqueue(ctx, lead)
}

// CheckFollowUp runs when a follow-up reminder fires: if the lead is still
// sitting in new_callback with no recent activity, the error notification
// channel nudges the floor manager.
func (l *Leadsync) CheckFollowUp(ctx context.Context, leadID string) (*model.Lead, error) {
	lead, err := l.datasource.GetLeadByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return lead, nil
}
