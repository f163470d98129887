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
package model

import (
	"github.com/shopspring/decimal"
)

type CreateLead struct {
	CustomerName string                 `json:"customer_name"`
	PhoneNumber  string                 `json:"phone_number"`
	Source       string                 `json:"source"`
	Vehicle      string                 `json:"vehicle"`
	Budget       decimal.Decimal        `json:"budget"`
	MetaData     map[string]interface{} `json:"meta_data"`
}

type ClaimLead struct {
	LeadID string `json:"lead_id"`
}
