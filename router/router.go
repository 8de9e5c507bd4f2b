// router/router.go

package router

import (
	"time"

	"github.com/dev-mohitbeniwal/guardian/controller"
	"github.com/dev-mohitbeniwal/guardian/middleware"
	"github.com/gin-gonic/gin"
)

// Options toggles the optional middleware on the service router.
type Options struct {
	RateLimitRequests int
	RateLimitDuration time.Duration
}

func SetupRouter(aclController *controller.ACLController, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if opts.RateLimitRequests > 0 {
		router.Use(middleware.RateLimiter(opts.RateLimitRequests, opts.RateLimitDuration))
	}

	api := router.Group("/v1")

	aclController.RegisterRoutes(api)

	return router
}
