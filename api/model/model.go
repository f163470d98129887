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
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dealerkit/leadsync/model"
)

func (l *CreateLead) ValidateCreateLead() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.CustomerName, validation.Required),
		validation.Field(&l.PhoneNumber, validation.Required),
		validation.Field(&l.Source, validation.Required),
	)
}

func (c *ClaimLead) ValidateClaimLead() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LeadID, validation.Required),
	)
}

func (l *CreateLead) ToLead() *model.Lead {
	return &model.Lead{
		CustomerName: l.CustomerName,
		PhoneNumber:  l.PhoneNumber,
		Source:       l.Source,
		Vehicle:      l.Vehicle,
		Budget:       l.Budget,
		MetaData:     l.MetaData,
	}
}
