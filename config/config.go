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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5100"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"LEADSYNC_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"LEADSYNC_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"LEADSYNC_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"LEADSYNC_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"LEADSYNC_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"LEADSYNC_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"LEADSYNC_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"LEADSYNC_REDIS_DNS"`
}

// FeedConfig tunes the lead change feed. Intervals are in seconds so they can
// be overridden from plain env vars; zero values fall back to defaults.
type FeedConfig struct {
	PingIntervalSec      int `json:"ping_interval_sec" envconfig:"LEADSYNC_FEED_PING_INTERVAL_SEC"`
	MinReconnectDelaySec int `json:"min_reconnect_delay_sec" envconfig:"LEADSYNC_FEED_MIN_RECONNECT_DELAY_SEC"`
	MaxReconnectDelaySec int `json:"max_reconnect_delay_sec" envconfig:"LEADSYNC_FEED_MAX_RECONNECT_DELAY_SEC"`
}

type QueueConfig struct {
	IngestionQueue string `json:"ingestion_queue" envconfig:"LEADSYNC_QUEUE_INGESTION"`
	FollowUpQueue  string `json:"follow_up_queue" envconfig:"LEADSYNC_QUEUE_FOLLOW_UP"`
	NumberOfQueues int    `json:"number_of_queues" envconfig:"LEADSYNC_QUEUE_NUMBER_OF_QUEUES"`
	MonitoringPort string `json:"monitoring_port" envconfig:"LEADSYNC_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"LEADSYNC_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"LEADSYNC_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"LEADSYNC_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"LEADSYNC_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Feed         FeedConfig       `json:"feed"`
	Queue        QueueConfig      `json:"queue"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("leadsync", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called leadsync.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Leadsync Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.IngestionQueue == "" {
		cnf.Queue.IngestionQueue = "new:lead"
	}
	if cnf.Queue.FollowUpQueue == "" {
		cnf.Queue.FollowUpQueue = "new:follow-up"
	}
	if cnf.Queue.NumberOfQueues == 0 {
		cnf.Queue.NumberOfQueues = 4
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5101"
	}

	if cnf.Feed.PingIntervalSec == 0 {
		cnf.Feed.PingIntervalSec = 90
	}
	if cnf.Feed.MinReconnectDelaySec == 0 {
		cnf.Feed.MinReconnectDelaySec = 1
	}
	if cnf.Feed.MaxReconnectDelaySec == 0 {
		cnf.Feed.MaxReconnectDelaySec = 30
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// PingInterval returns the change feed keepalive interval as a duration.
func (cnf *Configuration) PingInterval() time.Duration {
	return time.Duration(cnf.Feed.PingIntervalSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
