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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dealerkit/leadsync"
	"github.com/dealerkit/leadsync/config"
	"github.com/dealerkit/leadsync/database"
	"github.com/dealerkit/leadsync/internal/notification"
)

// Leadsync represents the CLI application, encapsulating the root Cobra command.
type Leadsync struct {
	cmd *cobra.Command
}

// leadsyncInstance holds the service instance and its configuration, shared
// across subcommands.
type leadsyncInstance struct {
	leadsync *leadsync.Leadsync
	cnf      *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service instance before
// any subcommand runs.
func preRun(app *leadsyncInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("leadsync.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newLeadsync, err := setupLeadsync(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.leadsync = newLeadsync
		app.cnf = cnf

		return nil
	}
}

// setupLeadsync creates the service instance backed by the configured record
// store.
func setupLeadsync(cfg *config.Configuration) (*leadsync.Leadsync, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newLeadsync, err := leadsync.NewLeadsync(db)
	if err != nil {
		return nil, fmt.Errorf("error creating leadsync: %v", err)
	}
	return newLeadsync, nil
}

// NewCLI creates the command-line interface for the leadsync application.
func NewCLI() *Leadsync {
	var configFile string
	l := &leadsyncInstance{}

	var rootCmd = &cobra.Command{
		Use:   "leadsync",
		Short: "Dealership lead intake and claim server",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./leadsync.json", "Configuration file for leadsync")

	rootCmd.PersistentPreRunE = preRun(l)

	rootCmd.AddCommand(serverCommands(l))
	rootCmd.AddCommand(workerCommands(l))
	rootCmd.AddCommand(migrateCommands(l))
	rootCmd.AddCommand(agentCommands(l))

	return &Leadsync{cmd: rootCmd}
}

func (w Leadsync) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
