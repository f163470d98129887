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
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dealerkit/leadsync"
	"github.com/dealerkit/leadsync/model"
)

// agentCommands creates the root command for agent provisioning.
func agentCommands(l *leadsyncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "manage leadsync agents",
	}

	cmd.AddCommand(agentCreateCommand(l))

	return cmd
}

// agentCreateCommand registers a new agent and prints the access token. The
// token is shown exactly once; only its hash is stored.
func agentCreateCommand(l *leadsyncInstance) *cobra.Command {
	var name string
	var email string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "create an agent and issue an access token",
		Run: func(cmd *cobra.Command, args []string) {
			if name == "" {
				log.Fatal("agent name is required, pass --name")
			}

			token := uuid.New().String()
			agent, err := l.leadsync.Datasource().CreateAgent(context.Background(), model.Agent{
				DisplayName: name,
				Email:       email,
				TokenHash:   leadsync.HashToken(token),
			})
			if err != nil {
				log.Fatalf("Error creating agent: %v", err)
			}

			fmt.Printf("Agent created: %s (%s)\n", agent.DisplayName, agent.AgentID)
			fmt.Printf("Access token (store it now, it will not be shown again): %s\n", token)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name for the agent")
	cmd.Flags().StringVar(&email, "email", "", "email for the agent")

	return cmd
}
