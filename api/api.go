package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dealerkit/leadsync"
	"github.com/dealerkit/leadsync/api/middleware"
	"github.com/dealerkit/leadsync/config"
)

type Api struct {
	leadsync *leadsync.Leadsync
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/leads", a.QueueLead)
	router.POST("/leads/claim", a.ClaimLead)
	router.GET("/leads/:id", a.GetLead)
	router.GET("/leads", a.GetAllLeads)
	router.GET("/leads/stats", a.GetLeadStats)

	return a.router
}

func NewAPI(l *leadsync.Leadsync) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.TokenAuthMiddleware(l.Identity()))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{leadsync: l, router: r}
}
