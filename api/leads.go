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
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealerkit/leadsync"
	model2 "github.com/dealerkit/leadsync/api/model"
	"github.com/dealerkit/leadsync/api/middleware"
	"github.com/dealerkit/leadsync/internal/apierror"
)

const defaultListLimit = 50

// statsScanLimit bounds the rows folded into the stats counters.
const statsScanLimit = 10000

func errorResponse(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// QueueLead accepts an intake submission and enqueues it for recording. The
// row lands asynchronously; the response carries the assigned lead id.
func (a Api) QueueLead(c *gin.Context) {
	var newLead model2.CreateLead
	if err := c.ShouldBindJSON(&newLead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newLead.ValidateCreateLead(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	lead := newLead.ToLead()
	if err := a.leadsync.QueueLead(c.Request.Context(), lead); err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusAccepted, lead)
}

// ClaimLead is the exclusive acquisition endpoint. Exactly one concurrent
// caller per lead gets 200; the rest get 409 regardless of who they are.
func (a Api) ClaimLead(c *gin.Context) {
	var claim model2.ClaimLead
	if err := c.ShouldBindJSON(&claim); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := claim.ValidateClaimLead(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	credential := c.GetHeader(middleware.TokenHeader)
	lead, err := a.leadsync.ClaimLead(c.Request.Context(), claim.LeadID, credential)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

func (a Api) GetLead(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	lead, err := a.leadsync.Datasource().GetLeadByID(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

func (a Api) GetAllLeads(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	leads, err := a.leadsync.Datasource().GetAllLeads(c.Request.Context(), limit, offset)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, leads)
}

// GetLeadStats folds the current lead rows into the dashboard counters.
func (a Api) GetLeadStats(c *gin.Context) {
	leads, err := a.leadsync.Datasource().GetAllLeads(c.Request.Context(), statsScanLimit, 0)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, leadsync.ComputeStats(leads, time.Now()))
}
