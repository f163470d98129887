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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dealerkit/leadsync"
	"github.com/dealerkit/leadsync/config"
	"github.com/dealerkit/leadsync/internal/notification"
	"github.com/dealerkit/leadsync/internal/pii"
	redis_db "github.com/dealerkit/leadsync/internal/redis-db"
	"github.com/dealerkit/leadsync/model"
)

// processLeadIntake records a lead received from the ingestion queue. The
// insert fires the change feed trigger, which is what pushes the lead out to
// subscribed viewers. Errors are returned so asynq retries the task.
func (l *leadsyncInstance) processLeadIntake(ctx context.Context, t *asynq.Task) error {
	var payload leadsync.LeadIntakePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	lead, err := l.leadsync.RecordLead(ctx, &payload.Data)
	if err != nil {
		logrus.Infof("Lead %s pushed back for retry due to error: %v", payload.Data.LeadID, err)
		return err
	}

	log.Println(" [*] Lead Recorded", lead.LeadID)
	return nil
}

// processFollowUp fires when a claim follow-up reminder comes due. A lead
// still waiting on a callback past this point is flagged through the error
// notification channel.
func (l *leadsyncInstance) processFollowUp(ctx context.Context, t *asynq.Task) error {
	var payload leadsync.FollowUpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	lead, err := l.leadsync.CheckFollowUp(ctx, payload.LeadID)
	if err != nil {
		return err
	}

	if lead.CRMStatus == model.StatusNewCallback {
		notification.NotifyError(fmt.Errorf("lead %s (%s, %s) claimed by %s still has no callback after %s",
			lead.LeadID, pii.MaskName(lead.CustomerName), pii.MaskPhone(lead.PhoneNumber),
			lead.ClaimedByName, time.Since(lead.LastActivityAt).Round(time.Minute)))
	}

	log.Println(" [*] Follow-up checked", payload.LeadID)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.FollowUpQueue] = 3

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.IngestionQueue, i)
		queues[queueName] = 1
	}
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(l *leadsyncInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	// Register handlers for the sharded ingestion queues
	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.IngestionQueue, i)
		mux.HandleFunc(queueName, l.processLeadIntake)
	}

	mux.HandleFunc(cfg.Queue.FollowUpQueue, l.processFollowUp)
}

// workerCommands defines the "workers" command to start worker processes
// consuming the ingestion and follow-up queues.
func workerCommands(l *leadsyncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start leadsync workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(l, mux)

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
